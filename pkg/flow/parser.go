// Package flow handles parsing and representation of declarative
// registration flow files.
package flow

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ParseError represents a parsing or validation error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ParseFile parses a single YAML flow definition file.
func ParseFile(path string) (*Flow, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided flow file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// stepRaw mirrors Step with durations expressed in milliseconds.
type stepRaw struct {
	Action  ActionKind `yaml:"action"`
	Target  string     `yaml:"target"`
	Value   string     `yaml:"value"`
	Message string     `yaml:"message"`
	State   WaitState  `yaml:"state"`
	Timeout int        `yaml:"timeout"` // ms
}

// Parse parses YAML flow content and validates it. Any violation is
// fatal: a flow that fails to parse is never partially executed.
func Parse(data []byte, sourcePath string) (*Flow, error) {
	var raw struct {
		Name      string             `yaml:"name"`
		StartURL  string             `yaml:"start_url"`
		Timeout   int                `yaml:"timeout"` // ms
		Selectors map[string]Locator `yaml:"selectors"`
		Variables map[string]string  `yaml:"variables"`
		Steps     []yaml.Node        `yaml:"steps"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: sourcePath, Message: fmt.Sprintf("invalid flow file: %v", err)}
	}

	f := &Flow{
		SourcePath: sourcePath,
		Name:       raw.Name,
		StartURL:   raw.StartURL,
		Timeout:    DefaultTimeout,
		Selectors:  raw.Selectors,
		Variables:  raw.Variables,
	}
	if raw.Timeout < 0 {
		return nil, &ParseError{Path: sourcePath, Message: "timeout must not be negative"}
	}
	if raw.Timeout > 0 {
		f.Timeout = time.Duration(raw.Timeout) * time.Millisecond
	}

	for _, node := range raw.Steps {
		step, err := parseStep(&node, sourcePath)
		if err != nil {
			return nil, err
		}
		f.Steps = append(f.Steps, step)
	}

	if err := Validate(f); err != nil {
		return nil, err
	}
	return f, nil
}

func parseStep(node *yaml.Node, sourcePath string) (Step, error) {
	// Handle scalar nodes like "- pause_for_manual" (no params).
	if node.Kind == yaml.ScalarNode {
		action := ActionKind(node.Value)
		if !action.IsValid() {
			return Step{}, &ParseError{
				Path:    sourcePath,
				Line:    node.Line,
				Message: fmt.Sprintf("unknown action: %s", node.Value),
			}
		}
		return Step{Action: action}, nil
	}

	if node.Kind != yaml.MappingNode {
		return Step{}, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "step must be a mapping or action name",
		}
	}

	var raw stepRaw
	if err := node.Decode(&raw); err != nil {
		return Step{}, &ParseError{Path: sourcePath, Line: node.Line, Message: err.Error()}
	}
	if !raw.Action.IsValid() {
		return Step{}, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: fmt.Sprintf("unknown action: %s", raw.Action),
		}
	}
	if raw.Timeout < 0 {
		return Step{}, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "timeout must not be negative",
		}
	}

	return Step{
		Action:  raw.Action,
		Target:  raw.Target,
		Value:   raw.Value,
		Message: raw.Message,
		State:   raw.State,
		Timeout: time.Duration(raw.Timeout) * time.Millisecond,
	}, nil
}
