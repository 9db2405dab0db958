package engine

import (
	"fmt"
	"strings"

	"github.com/accountforge/regrunner/pkg/flow"
)

// Scopes holds the variable sources a flow resolves placeholders
// against. All scopes are snapshots taken when the execution context
// is built; resolution never reads the live process environment.
type Scopes struct {
	Flow    map[string]string
	Account map[string]string
	Config  map[string]any
	Env     map[string]string
}

// Resolve substitutes every {scope.key} placeholder in text in a
// single pass. Text without placeholders is returned unchanged, so
// resolving an already-resolved string is a no-op. A placeholder whose
// key has no value is a hard error, never an empty substitution.
func (s *Scopes) Resolve(text string) (string, error) {
	if !strings.Contains(text, "{") {
		return text, nil
	}

	var resolveErr error
	out := flow.PlaceholderPattern.ReplaceAllStringFunc(text, func(raw string) string {
		if resolveErr != nil {
			return raw
		}
		m := flow.PlaceholderPattern.FindStringSubmatch(raw)
		value, err := s.lookup(m[1], m[2])
		if err != nil {
			resolveErr = err
			return raw
		}
		return value
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return out, nil
}

func (s *Scopes) lookup(scope, key string) (string, error) {
	switch scope {
	case flow.ScopeFlow:
		if v, ok := s.Flow[key]; ok {
			return v, nil
		}
	case flow.ScopeAccount:
		if v, ok := s.Account[key]; ok {
			return v, nil
		}
	case flow.ScopeConfig:
		if v, ok := configValue(s.Config, key); ok {
			return v, nil
		}
	case flow.ScopeEnv:
		if v, ok := s.Env[key]; ok {
			return v, nil
		}
	default:
		return "", ErrInvalidFlow.WithMessage(
			fmt.Sprintf("unknown placeholder scope %q in {%s.%s}", scope, scope, key))
	}
	return "", unresolvedVariable(scope, key)
}

// configValue walks a dotted key path through nested config maps, so
// {config.registration.domain} reaches into the registration section.
func configValue(cfg map[string]any, key string) (string, bool) {
	parts := strings.Split(key, ".")
	var current any = cfg
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = m[part]
		if !ok {
			return "", false
		}
	}
	switch v := current.(type) {
	case string:
		return v, true
	case bool:
		return fmt.Sprintf("%t", v), true
	case int, int64, float64:
		return fmt.Sprintf("%v", v), true
	default:
		return "", false
	}
}
