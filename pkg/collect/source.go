package collect

import (
	"context"

	"feedbot/pkg/browser"
)

// PageSource adapts a browser page into a Source: Fetch queries the
// candidate selector, Advance scrolls the viewport, Refresh reloads the
// feed.
type PageSource struct {
	Page         browser.Page
	Selector     string
	ScrollPixels int
}

func (s *PageSource) Fetch(ctx context.Context) ([]browser.Element, error) {
	return s.Page.QueryAll(ctx, s.Selector)
}

func (s *PageSource) Advance(ctx context.Context) error {
	pixels := s.ScrollPixels
	if pixels <= 0 {
		pixels = 1200
	}
	return s.Page.ScrollBy(ctx, pixels)
}

func (s *PageSource) Refresh(ctx context.Context) error {
	return s.Page.Reload(ctx)
}

var (
	_ Source    = (*PageSource)(nil)
	_ Refresher = (*PageSource)(nil)
)
