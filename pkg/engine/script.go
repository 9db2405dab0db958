package engine

import (
	"fmt"

	"github.com/dop251/goja"
)

// evalCondition runs a JavaScript expression with the variable scopes
// exposed as globals and returns its truthiness. Scripts are read-only
// observers: they cannot touch the page or mutate scopes.
func evalCondition(script string, scopes *Scopes) (bool, error) {
	vm := goja.New()

	globals := map[string]any{
		"flow":    scopes.Flow,
		"account": scopes.Account,
		"config":  scopes.Config,
		"env":     scopes.Env,
	}
	for name, value := range globals {
		if err := vm.Set(name, value); err != nil {
			return false, fmt.Errorf("failed to bind %s scope: %w", name, err)
		}
	}

	result, err := vm.RunString(script)
	if err != nil {
		return false, fmt.Errorf("script failed: %w", err)
	}
	return result.ToBoolean(), nil
}
