// Package browser abstracts the remote browser page that scrapers and
// action runners drive. The Page interface is the only surface the rest of
// the code depends on; ChromePage implements it with chromedp and MockPage
// provides a scriptable in-memory implementation for tests.
package browser

import (
	"context"
	"time"
)

// Element is an opaque handle to a DOM element returned by a Page query.
type Element interface {
	// Handle returns an implementation-specific identifier, for logs.
	Handle() string
}

// Page is an abstract remote browser page
type Page interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error

	// QueryAll returns handles for all elements matching selector.
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// QueryOne returns the first descendant of root matching selector.
	// The second return value is false when no such element exists;
	// callers check for absence instead of relying on a nil handle.
	QueryOne(ctx context.Context, root Element, selector string) (Element, bool, error)

	// Text returns the visible text content of el.
	Text(ctx context.Context, el Element) (string, error)

	// Attribute returns the named attribute of el and whether it is set.
	Attribute(ctx context.Context, el Element, name string) (string, bool, error)

	// OuterHTML returns the serialized HTML of el, for parser-based
	// extraction.
	OuterHTML(ctx context.Context, el Element) (string, error)

	// Click dispatches a click on el.
	Click(ctx context.Context, el Element) error

	// Type focuses el and types text into it.
	Type(ctx context.Context, el Element, text string) error

	// ScrollBy advances the viewport by pixels.
	ScrollBy(ctx context.Context, pixels int) error

	// WaitFor blocks until an element matching selector is visible or
	// timeout elapses. It returns false on timeout, without error.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error)

	// Reload refreshes the current document.
	Reload(ctx context.Context) error

	// Close releases the page and its browser resources.
	Close() error
}
