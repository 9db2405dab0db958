// Package otp delivers email verification codes to the engine. The
// engine only depends on the Fetcher interface; where codes actually
// come from (a mailbox poller, a drop file, a test stub) is up to the
// caller.
package otp

import (
	"context"
	"errors"
	"regexp"
)

// ErrNoCode is returned when no code has arrived yet for the account.
// Callers poll, so this is expected and transient.
var ErrNoCode = errors.New("no verification code available yet")

// Fetcher retrieves the verification code sent to an account's email.
type Fetcher interface {
	FetchCode(ctx context.Context, accountEmail string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, accountEmail string) (string, error)

// FetchCode calls f.
func (f FetcherFunc) FetchCode(ctx context.Context, accountEmail string) (string, error) {
	return f(ctx, accountEmail)
}

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

// ExtractCode pulls the first six-digit group out of a message subject
// or body. It returns "" when none is found.
func ExtractCode(text string) string {
	m := codePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
