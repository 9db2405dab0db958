// Package cli provides the command-line interface for regrunner.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/accountforge/regrunner/pkg/config"
	"github.com/accountforge/regrunner/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config.yaml (default: ./config.yaml)",
		EnvVars: []string{"REGRUNNER_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Log file path",
		Value:   "regrunner.log",
		EnvVars: []string{"REGRUNNER_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Echo all log lines to stderr",
		EnvVars: []string{"REGRUNNER_VERBOSE"},
	},
}

// Execute runs the CLI.
func Execute() {
	app := &cli.App{
		Name:    "regrunner",
		Usage:   "Batch account registration flow runner",
		Version: Version,
		Description: `Regrunner executes declarative registration flows against a browser,
one account at a time, with checkpointing and resume.

Examples:
  regrunner run flow.yaml --count 10
  regrunner run flow.yaml --mode auto --driver mock
  regrunner run flow.yaml --resume 6e1f...
  regrunner validate flow.yaml
  regrunner export --batch 6e1f... --format csv`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if err := config.LoadDotenv(); err != nil {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			if err := logger.Init(c.String("log-file")); err != nil {
				return err
			}
			logger.SetEcho(os.Stderr, c.Bool("verbose"))
			return nil
		},
		After: func(c *cli.Context) error {
			logger.Close()
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			validateCommand,
			exportCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the config named by --config, or the working
// directory's config.yaml.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadFromDir(".")
}
