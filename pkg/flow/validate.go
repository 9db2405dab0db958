// Package flow handles parsing and representation of declarative
// registration flow files.
package flow

import (
	"fmt"
	"strconv"
	"strings"
)

// Validate checks a flow definition for structural problems. It is
// called by Parse, and by the CLI to vet a file without running it.
func Validate(f *Flow) error {
	if f.Name == "" {
		return validationError(f, "flow has no name")
	}
	if len(f.Steps) == 0 {
		return validationError(f, "flow has no steps")
	}
	if err := checkScopes(f, "start_url", f.StartURL); err != nil {
		return err
	}

	for i, step := range f.Steps {
		where := fmt.Sprintf("step %d (%s)", i+1, step.Action)

		if step.Action.needsTarget() {
			if step.Target == "" {
				return validationError(f, "%s: missing target", where)
			}
			if err := checkTarget(f, where, step.Target); err != nil {
				return err
			}
		}
		if step.State != "" && !step.State.IsValid() {
			return validationError(f, "%s: unknown state %q (want present, visible or clickable)", where, step.State)
		}
		switch step.Action {
		case ActionType:
			if step.Value == "" {
				return validationError(f, "%s: missing value", where)
			}
		case ActionSleep:
			if step.Value == "" {
				return validationError(f, "%s: missing duration", where)
			}
			// A literal duration is checked here; one produced by
			// substitution can only fail at execution time.
			if len(Placeholders(step.Value)) == 0 {
				if ms, err := strconv.Atoi(step.Value); err != nil || ms < 0 {
					return validationError(f, "%s: duration %q is not a millisecond count", where, step.Value)
				}
			}
		case ActionEvalScript:
			if step.Value == "" {
				return validationError(f, "%s: missing script", where)
			}
		}

		for _, field := range []struct{ name, text string }{
			{"target", step.Target},
			{"value", step.Value},
			{"message", step.Message},
		} {
			if err := checkScopes(f, fmt.Sprintf("%s %s", where, field.name), field.text); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkTarget verifies that a step target names a declared selector or
// is a valid inline locator. Targets containing placeholders are only
// checked after resolution, at execution time.
func checkTarget(f *Flow, where, target string) error {
	if len(Placeholders(target)) > 0 {
		return nil
	}
	if _, ok := f.Selectors[target]; ok {
		return nil
	}
	if strings.Contains(target, ":") {
		if _, err := ParseLocator(target); err != nil {
			return validationError(f, "%s: %v", where, err)
		}
		return nil
	}
	return validationError(f, "%s: selector %q is not declared", where, target)
}

// checkScopes rejects placeholders that can never resolve: unknown
// scope names, and flow-scope keys the file does not declare. Account,
// config and env keys are only known at run time.
func checkScopes(f *Flow, where, text string) error {
	for _, p := range Placeholders(text) {
		if !KnownScope(p.Scope) {
			return validationError(f, "%s: unknown placeholder scope %q in %s", where, p.Scope, p.Raw)
		}
		if p.Scope == ScopeFlow && !f.hasFlowKey(p.Key) {
			return validationError(f, "%s: undeclared flow variable %s", where, p.Raw)
		}
	}
	return nil
}

func (f *Flow) hasFlowKey(key string) bool {
	if key == "name" || key == "start_url" {
		return true
	}
	_, ok := f.Variables[key]
	return ok
}

func validationError(f *Flow, format string, args ...any) error {
	return &ParseError{Path: f.SourcePath, Message: fmt.Sprintf(format, args...)}
}
