// Package flow handles parsing and representation of declarative
// registration flow files.
package flow

import (
	"fmt"
	"time"
)

// ActionKind identifies the kind of a step.
type ActionKind string

// Supported step actions.
const (
	ActionNavigate       ActionKind = "navigate"
	ActionWait           ActionKind = "wait"
	ActionType           ActionKind = "type"
	ActionClick          ActionKind = "click"
	ActionSleep          ActionKind = "sleep"
	ActionExpect         ActionKind = "expect"
	ActionPauseForManual ActionKind = "pause_for_manual"
	ActionAutoContinue   ActionKind = "auto_continue"
	ActionAutoFillOTP    ActionKind = "auto_fill_otp"
	ActionEvalScript     ActionKind = "eval_script"
)

// IsValid reports whether a is a known action.
func (a ActionKind) IsValid() bool {
	switch a {
	case ActionNavigate, ActionWait, ActionType, ActionClick, ActionSleep,
		ActionExpect, ActionPauseForManual, ActionAutoContinue,
		ActionAutoFillOTP, ActionEvalScript:
		return true
	}
	return false
}

// needsTarget reports whether the action requires an element target.
func (a ActionKind) needsTarget() bool {
	switch a {
	case ActionWait, ActionType, ActionClick, ActionExpect:
		return true
	}
	return false
}

// WaitState is the element condition a wait or expect step waits for.
type WaitState string

// Supported wait states.
const (
	StatePresent   WaitState = "present"
	StateVisible   WaitState = "visible"
	StateClickable WaitState = "clickable"
)

// IsValid reports whether s is a known wait state.
func (s WaitState) IsValid() bool {
	switch s {
	case StatePresent, StateVisible, StateClickable:
		return true
	}
	return false
}

// Step is a single flow step. Target, Value and Message may contain
// {scope.key} placeholders that are resolved at execution time.
type Step struct {
	Action  ActionKind    // What to do
	Target  string        // Selector name, inline locator or URL
	Value   string        // Action payload (text, URL, duration, script)
	Message string        // Operator-facing message for pauses
	State   WaitState     // Wait condition for wait/expect
	Timeout time.Duration // Per-step override, 0 means flow default
}

// Describe returns a short human-readable description for logs.
func (s Step) Describe() string {
	switch {
	case s.Target != "" && s.Value != "":
		return fmt.Sprintf("%s %s %q", s.Action, s.Target, s.Value)
	case s.Target != "":
		return fmt.Sprintf("%s %s", s.Action, s.Target)
	case s.Value != "":
		return fmt.Sprintf("%s %q", s.Action, s.Value)
	default:
		return string(s.Action)
	}
}
