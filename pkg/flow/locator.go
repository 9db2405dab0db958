// Package flow handles parsing and representation of declarative
// registration flow files.
package flow

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strategy identifies how a locator value should be interpreted.
type Strategy string

// Supported location strategies.
const (
	ByID    Strategy = "id"
	ByCSS   Strategy = "css"
	ByXPath Strategy = "xpath"
)

// IsValid reports whether s is a known strategy.
func (s Strategy) IsValid() bool {
	switch s {
	case ByID, ByCSS, ByXPath:
		return true
	}
	return false
}

// Locator represents element selection criteria.
// Pure data structure - the browser decides how to use it.
type Locator struct {
	Strategy Strategy `yaml:"strategy"`
	Value    string   `yaml:"value"`
}

// ParseLocator parses the "strategy:value" shorthand, e.g. "css:button.continue".
func ParseLocator(s string) (Locator, error) {
	strategy, value, ok := strings.Cut(s, ":")
	if !ok || value == "" {
		return Locator{}, fmt.Errorf("locator %q must have the form strategy:value", s)
	}
	loc := Locator{Strategy: Strategy(strategy), Value: value}
	if !loc.Strategy.IsValid() {
		return Locator{}, fmt.Errorf("unknown locator strategy %q (want id, css or xpath)", strategy)
	}
	return loc, nil
}

// UnmarshalYAML allows Locator to be unmarshaled from the shorthand
// string or from a {strategy, value} mapping.
func (l *Locator) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		loc, err := ParseLocator(node.Value)
		if err != nil {
			return err
		}
		*l = loc
		return nil
	}

	var raw struct {
		Strategy Strategy `yaml:"strategy"`
		Value    string   `yaml:"value"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Value == "" {
		return fmt.Errorf("locator is missing a value")
	}
	if !raw.Strategy.IsValid() {
		return fmt.Errorf("unknown locator strategy %q (want id, css or xpath)", raw.Strategy)
	}
	l.Strategy = raw.Strategy
	l.Value = raw.Value
	return nil
}

// String returns a description like css="button.continue".
func (l Locator) String() string {
	return string(l.Strategy) + "=\"" + l.Value + "\""
}
