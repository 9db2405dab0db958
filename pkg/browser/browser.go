// Package browser defines the interface between the flow engine and a
// browser automation backend. The engine never talks to a browser
// directly; it only issues these operations.
package browser

import (
	"context"
	"time"

	"github.com/accountforge/regrunner/pkg/flow"
)

// ElementHandle is an opaque reference to an element located by
// QueryFirstMatching. Handles are owned by the Browser that produced
// them and are only valid for that page state.
type ElementHandle interface {
	// Describe returns a short identification for logs.
	Describe() string
}

// Browser executes primitive page operations. Implementations report
// failures as errors; the engine decides what a failure means for the
// flow.
type Browser interface {
	// Navigate loads url in the current page.
	Navigate(ctx context.Context, url string) error

	// WaitFor blocks until the element matched by loc reaches state,
	// or timeout elapses.
	WaitFor(ctx context.Context, loc flow.Locator, state flow.WaitState, timeout time.Duration) error

	// Type clears the element's existing content and types text into it.
	Type(ctx context.Context, loc flow.Locator, text string) error

	// Click clicks the element matched by loc.
	Click(ctx context.Context, loc flow.Locator) error

	// QueryFirstMatching returns the first element matching the CSS
	// pattern, or (nil, nil) when no element matches. Absence is not
	// an error.
	QueryFirstMatching(ctx context.Context, cssPattern string) (ElementHandle, error)

	// PasteInto inserts text into a previously located element.
	PasteInto(ctx context.Context, el ElementHandle, text string) error

	// IsClickable reports whether a previously located element is
	// currently clickable.
	IsClickable(ctx context.Context, el ElementHandle) (bool, error)

	// Close releases the browser session.
	Close() error
}

// Factory creates a fresh browser session. The batch controller calls
// it once per account so sessions never share state.
type Factory func(ctx context.Context) (Browser, error)
