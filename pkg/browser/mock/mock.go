// Package mock provides an in-memory browser for testing without a
// real browser session.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/accountforge/regrunner/pkg/browser"
	"github.com/accountforge/regrunner/pkg/flow"
)

func init() {
	browser.Register("mock", func(ctx context.Context) (browser.Browser, error) {
		return New(Config{}), nil
	})
}

// Call records a single operation issued to the mock.
type Call struct {
	Op      string // navigate, wait, type, click, query, paste, clickable, close
	Target  string // locator description, element name or pattern
	Text    string // typed or pasted text, navigated URL
	State   flow.WaitState
	Timeout time.Duration
}

// Element is a mock element handle.
type Element struct {
	Name string
}

// Describe returns the element name.
func (e *Element) Describe() string { return e.Name }

// Config configures mock browser behavior.
type Config struct {
	// FailOp makes every call of that operation fail ("navigate",
	// "wait", "type", "click", "query", "paste", "clickable").
	FailOp string
	// WaitErrs fails WaitFor for specific locators, keyed by
	// Locator.String(). Takes precedence over FailOp for waits.
	WaitErrs map[string]error
	// Elements maps a CSS pattern to the element QueryFirstMatching
	// returns for it. Missing patterns yield (nil, nil).
	Elements map[string]*Element
	// NotClickablePolls makes IsClickable report false that many
	// times per element name before reporting true.
	NotClickablePolls map[string]int
	// OpDelay adds artificial delay per operation.
	OpDelay time.Duration
}

// Browser is a mock implementation of browser.Browser. It records
// every call so tests can assert on operation order.
type Browser struct {
	Config Config

	mu        sync.Mutex
	calls     []Call
	remaining map[string]int
	closed    bool
}

// New creates a new mock browser.
func New(cfg Config) *Browser {
	remaining := make(map[string]int, len(cfg.NotClickablePolls))
	for name, n := range cfg.NotClickablePolls {
		remaining[name] = n
	}
	return &Browser{Config: cfg, remaining: remaining}
}

// Calls returns a copy of all recorded calls.
func (b *Browser) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// Ops returns the recorded operation names in order.
func (b *Browser) Ops() []string {
	calls := b.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

// CallsTo returns the recorded calls for one operation.
func (b *Browser) CallsTo(op string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Closed reports whether Close was called.
func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Browser) record(c Call) error {
	if b.Config.OpDelay > 0 {
		time.Sleep(b.Config.OpDelay)
	}
	b.mu.Lock()
	b.calls = append(b.calls, c)
	b.mu.Unlock()
	if b.Config.FailOp == c.Op {
		return fmt.Errorf("mock failure on %s %s", c.Op, c.Target)
	}
	return nil
}

// Navigate records the navigation.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	return b.record(Call{Op: "navigate", Text: url})
}

// WaitFor records the wait and fails per WaitErrs or FailOp.
func (b *Browser) WaitFor(ctx context.Context, loc flow.Locator, state flow.WaitState, timeout time.Duration) error {
	key := loc.String()
	if err, ok := b.Config.WaitErrs[key]; ok {
		b.mu.Lock()
		b.calls = append(b.calls, Call{Op: "wait", Target: key, State: state, Timeout: timeout})
		b.mu.Unlock()
		return err
	}
	return b.record(Call{Op: "wait", Target: key, State: state, Timeout: timeout})
}

// Type records the typed text.
func (b *Browser) Type(ctx context.Context, loc flow.Locator, text string) error {
	return b.record(Call{Op: "type", Target: loc.String(), Text: text})
}

// Click records the click.
func (b *Browser) Click(ctx context.Context, loc flow.Locator) error {
	return b.record(Call{Op: "click", Target: loc.String()})
}

// QueryFirstMatching returns the configured element for the pattern,
// or (nil, nil) when none is configured.
func (b *Browser) QueryFirstMatching(ctx context.Context, cssPattern string) (browser.ElementHandle, error) {
	if err := b.record(Call{Op: "query", Target: cssPattern}); err != nil {
		return nil, err
	}
	el, ok := b.Config.Elements[cssPattern]
	if !ok || el == nil {
		return nil, nil
	}
	return el, nil
}

// PasteInto records the paste.
func (b *Browser) PasteInto(ctx context.Context, el browser.ElementHandle, text string) error {
	return b.record(Call{Op: "paste", Target: el.Describe(), Text: text})
}

// IsClickable reports false for the element's first NotClickablePolls
// calls, then true.
func (b *Browser) IsClickable(ctx context.Context, el browser.ElementHandle) (bool, error) {
	name := el.Describe()
	if err := b.record(Call{Op: "clickable", Target: name}); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining[name] > 0 {
		b.remaining[name]--
		return false, nil
	}
	return true, nil
}

// Close records the close.
func (b *Browser) Close() error {
	err := b.record(Call{Op: "close"})
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return err
}
