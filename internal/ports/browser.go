package ports

import (
	"context"
	"time"
)

// ClickStrategy names the way a click is delivered to an element.
type ClickStrategy int

const (
	// ClickDirect uses the driver's native element click.
	ClickDirect ClickStrategy = iota
	// ClickScripted calls the element's click() from script.
	ClickScripted
	// ClickPointer dispatches synthetic pointer events at the element center.
	ClickPointer
)

// String returns the strategy name used in logs.
func (s ClickStrategy) String() string {
	switch s {
	case ClickDirect:
		return "direct"
	case ClickScripted:
		return "scripted"
	case ClickPointer:
		return "pointer"
	default:
		return "unknown"
	}
}

// Browser drives one automation session. Selectors are CSS selectors and are
// evaluated against the current focus: the top-level document, or the frame
// entered with SwitchToFrame.
//
// Lookups that match nothing return an error wrapping domain.ErrElementNotFound;
// waits that elapse return an error wrapping domain.ErrTimeout.
type Browser interface {
	// Navigate loads url in the top-level document and resets frame focus.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the location of the top-level document.
	CurrentURL(ctx context.Context) (string, error)

	// Find returns the first element matching selector without waiting.
	Find(ctx context.Context, selector string) (Element, error)

	// FindAll returns every element matching selector, possibly none.
	FindAll(ctx context.Context, selector string) ([]Element, error)

	// WaitPresent waits up to timeout for selector to match an element.
	WaitPresent(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	// WaitClickable waits up to timeout for a visible, enabled match.
	WaitClickable(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	// SwitchToFrame moves focus into the document of an iframe element.
	SwitchToFrame(ctx context.Context, frame Element) error

	// SwitchToDefault returns focus to the top-level document.
	SwitchToDefault(ctx context.Context) error

	// Close releases the session. It is safe to call more than once.
	Close() error
}

// Element is a handle to one node in the browser's current document.
type Element interface {
	// Text returns the rendered text, with line breaks for <br> and blocks.
	Text(ctx context.Context) (string, error)

	// Attribute returns the named attribute; href and src are absolute.
	Attribute(ctx context.Context, name string) (string, error)

	// Find returns the first descendant matching selector without waiting.
	Find(ctx context.Context, selector string) (Element, error)

	// FindAll returns every descendant matching selector.
	FindAll(ctx context.Context, selector string) ([]Element, error)

	// Click clicks the element with the given strategy.
	Click(ctx context.Context, strategy ClickStrategy) error

	// SendKeys types text into the element.
	SendKeys(ctx context.Context, text string) error

	// ScrollIntoView scrolls the element into the viewport.
	ScrollIntoView(ctx context.Context) error
}
