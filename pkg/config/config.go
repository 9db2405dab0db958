// Package config handles configuration for regrunner.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the workspace configuration (config.yaml).
type Config struct {
	// Flow selection
	FlowFile string `yaml:"flow_file"` // Default flow file

	// Batch settings
	Registration Registration `yaml:"registration"`

	// Verification page handling
	Verification Verification `yaml:"verification"`

	// raw keeps the decoded document for {config.*} placeholders.
	raw map[string]any
}

// Registration configures batch runs.
type Registration struct {
	Count           int    `yaml:"count"`            // Accounts per batch
	IntervalSeconds int    `yaml:"interval_seconds"` // Delay between accounts
	MaxRetries      int    `yaml:"max_retries"`      // Retries per failed account
	Domain          string `yaml:"domain"`           // Email domain for generated accounts
	Password        string `yaml:"password"`         // Password for generated accounts
}

// Verification configures the auto-verification probes.
type Verification struct {
	ContinuePattern     string `yaml:"continue_pattern"`      // CSS for the continuation control
	OTPInputPattern     string `yaml:"otp_input_pattern"`     // CSS for the code input
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"` // Probe interval
	TimeoutSeconds      int    `yaml:"timeout_seconds"`       // Total poll budget
	CodeDropFile        string `yaml:"code_drop_file"`        // JSON file mapping email to code
}

// Default creates a config with usable defaults.
func Default() *Config {
	return &Config{
		Registration: Registration{
			Count:           1,
			IntervalSeconds: 5,
			MaxRetries:      0,
		},
		Verification: Verification{
			PollIntervalSeconds: 2,
			TimeoutSeconds:      90,
		},
	}
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg.raw); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	// No config file found, return defaults
	return Default(), nil
}

// LoadDotenv loads a .env file into the process environment if one
// exists. Existing variables win.
func LoadDotenv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load()
}

// Validate checks ranges that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Registration.Count < 0 {
		return fmt.Errorf("registration.count must not be negative")
	}
	if c.Registration.IntervalSeconds < 0 {
		return fmt.Errorf("registration.interval_seconds must not be negative")
	}
	if c.Registration.MaxRetries < 0 {
		return fmt.Errorf("registration.max_retries must not be negative")
	}
	if c.Verification.PollIntervalSeconds <= 0 {
		return fmt.Errorf("verification.poll_interval_seconds must be positive")
	}
	if c.Verification.TimeoutSeconds <= 0 {
		return fmt.Errorf("verification.timeout_seconds must be positive")
	}
	return nil
}

// Scope returns the raw document for {config.*} placeholder lookups.
func (c *Config) Scope() map[string]any {
	if c.raw == nil {
		return map[string]any{}
	}
	return c.raw
}

// Interval returns the delay between accounts.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Registration.IntervalSeconds) * time.Second
}

// PollInterval returns the verification probe interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Verification.PollIntervalSeconds) * time.Second
}

// PollBudget returns the total verification wait budget.
func (c *Config) PollBudget() time.Duration {
	return time.Duration(c.Verification.TimeoutSeconds) * time.Second
}
