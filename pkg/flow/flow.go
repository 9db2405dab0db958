// Package flow handles parsing and representation of declarative
// registration flow files.
package flow

import "time"

// Flow represents a parsed flow definition file.
type Flow struct {
	SourcePath string             // Path to the source file
	Name       string             // Human-readable flow name
	StartURL   string             // Entry URL, may contain placeholders
	Timeout    time.Duration      // Default per-step wait timeout
	Selectors  map[string]Locator // Named element locators
	Variables  map[string]string  // Flow-scoped variable values
	Steps      []Step             // Steps to execute in order
}

// Locator looks up a named selector.
func (f *Flow) Locator(name string) (Locator, bool) {
	loc, ok := f.Selectors[name]
	return loc, ok
}

// DefaultTimeout is used when a flow file does not set one.
const DefaultTimeout = 10 * time.Second
