package engine

import (
	"os"
	"strings"

	"github.com/accountforge/regrunner/pkg/accounts"
	"github.com/accountforge/regrunner/pkg/flow"
)

// Mode selects how pause steps are handled.
type Mode string

const (
	// ModeManual suspends the flow until an operator requests continue.
	ModeManual Mode = "manual"
	// ModeAuto polls the page and resumes without operator input.
	ModeAuto Mode = "auto"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeManual || m == ModeAuto
}

// ExecutionContext carries the per-account state of one flow run: the
// variable scopes and any verification code fetched during it.
type ExecutionContext struct {
	Scopes Scopes
	Mode   Mode

	// OTPCode is the verification code fetched for this run, empty
	// until one arrives. A fetched code is pasted at most once.
	OTPCode   string
	otpPasted bool
}

// NewExecutionContext snapshots all variable scopes for one account's
// run. The env scope is captured here so resolution stays deterministic
// for the lifetime of the run.
func NewExecutionContext(f *flow.Flow, acct accounts.Account, cfg map[string]any, mode Mode) *ExecutionContext {
	flowScope := map[string]string{
		"name":      f.Name,
		"start_url": f.StartURL,
	}
	for k, v := range f.Variables {
		flowScope[k] = v
	}

	return &ExecutionContext{
		Scopes: Scopes{
			Flow:    flowScope,
			Account: acct.Scope(),
			Config:  cfg,
			Env:     environSnapshot(),
		},
		Mode: mode,
	}
}

func environSnapshot() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// AccountEmail returns the email of the account under registration.
func (ec *ExecutionContext) AccountEmail() string {
	return ec.Scopes.Account["email"]
}

// SetOTPCode stores a freshly fetched code and arms it for a single paste.
func (ec *ExecutionContext) SetOTPCode(code string) {
	ec.OTPCode = code
	ec.otpPasted = false
}

// PendingOTPCode returns the armed code, or "" when none is available
// or the current code was already pasted.
func (ec *ExecutionContext) PendingOTPCode() string {
	if ec.otpPasted {
		return ""
	}
	return ec.OTPCode
}

// MarkOTPPasted records that the current code went into the page, so
// it is never pasted twice.
func (ec *ExecutionContext) MarkOTPPasted() {
	ec.otpPasted = true
}
