// Package surface defines the contract for the remote document surface the
// engine drives. The target has no formal schema: every operation may fail
// because an element is absent, and callers are expected to treat that as a
// normal condition.
package surface

import (
	"context"
	"time"
)

// Surface exposes the interactions the engine needs against one rendered
// view. Implementations must bound every wait; only WaitVisible carries an
// explicit caller-supplied timeout.
type Surface interface {
	// Navigate loads a URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// WaitVisible blocks until the selector is visible or the timeout expires.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// Click clicks the first element matching the selector.
	Click(ctx context.Context, selector string) error

	// ClickAll clicks every element matching the selector, ignoring
	// per-element failures.
	ClickAll(ctx context.Context, selector string) error

	// TypeSlow focuses the element and types the text character by
	// character with a randomized inter-character delay.
	TypeSlow(ctx context.Context, selector, text string) error

	// SetValue sets the element's value and dispatches the surface's
	// standard change notification.
	SetValue(ctx context.Context, selector, value string) error

	// Text returns the trimmed text content of the first match.
	Text(ctx context.Context, selector string) (string, error)

	// Exists reports whether at least one element matches the selector.
	Exists(ctx context.Context, selector string) (bool, error)

	// Count returns the number of elements matching the selector.
	Count(ctx context.Context, selector string) (int, error)

	// Evaluate runs a script in the view and decodes its result into out.
	Evaluate(ctx context.Context, script string, out interface{}) error

	// PressEnter sends an Enter key press to the element.
	PressEnter(ctx context.Context, selector string) error

	// URL returns the current view URL.
	URL(ctx context.Context) (string, error)
}

// Session is one exclusively-owned interactive session. Release must be
// idempotent-safe to call exactly once and must reclaim the underlying
// browser resource.
type Session interface {
	Surface
	Release() error
}

// Provider acquires sessions. At most one session is live at a time; the
// orchestrator enforces this.
type Provider interface {
	Acquire(ctx context.Context) (Session, error)
}
