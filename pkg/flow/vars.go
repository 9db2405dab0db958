// Package flow handles parsing and representation of declarative
// registration flow files.
package flow

import "regexp"

// Placeholder is a single {scope.key} occurrence in a string.
type Placeholder struct {
	Raw   string // Full match including braces
	Scope string
	Key   string
}

// PlaceholderPattern matches {scope.key} occurrences. Whitespace in the
// scope breaks the match ("{ account.email}" stays literal text), while
// whitespace in the key is kept as part of the key, so "{account. email}"
// looks up the key " email" and fails resolution.
var PlaceholderPattern = regexp.MustCompile(`\{([a-zA-Z_]+)\.([^{}]+)\}`)

// Recognized placeholder scopes.
const (
	ScopeFlow    = "flow"
	ScopeAccount = "account"
	ScopeConfig  = "config"
	ScopeEnv     = "env"
)

// KnownScope reports whether scope is one of the recognized scopes.
func KnownScope(scope string) bool {
	switch scope {
	case ScopeFlow, ScopeAccount, ScopeConfig, ScopeEnv:
		return true
	}
	return false
}

// AllPlaceholders returns every placeholder in the flow's start_url
// and in each step's target, value and message, in document order.
func (f *Flow) AllPlaceholders() []Placeholder {
	out := Placeholders(f.StartURL)
	for _, step := range f.Steps {
		out = append(out, Placeholders(step.Target)...)
		out = append(out, Placeholders(step.Value)...)
		out = append(out, Placeholders(step.Message)...)
	}
	return out
}

// Placeholders returns every placeholder found in s, in order.
func Placeholders(s string) []Placeholder {
	matches := PlaceholderPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Placeholder, 0, len(matches))
	for _, m := range matches {
		out = append(out, Placeholder{Raw: m[0], Scope: m[1], Key: m[2]})
	}
	return out
}
