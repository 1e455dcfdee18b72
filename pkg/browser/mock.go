package browser

import (
	"context"
	"sync"
	"time"

	errs "feedbot/pkg/errors"
)

// MockElement is a scriptable element for tests
type MockElement struct {
	ElemID      string
	TextContent string
	Attrs       map[string]string
	HTML        string
	Children    map[string]*MockElement // selector -> child
}

func (e *MockElement) Handle() string {
	return e.ElemID
}

// MockPage is an in-memory Page implementation for tests. Views holds the
// element sets revealed by successive scrolls: QueryAll serves the current
// view and ScrollBy advances to the next one.
type MockPage struct {
	mu sync.Mutex

	Views   [][]*MockElement
	viewIdx int

	// Overrides maps selectors to fixed QueryAll results, independent of
	// the scripted views. Used for modal elements like confirm dialogs.
	Overrides map[string][]*MockElement

	// Error injection.
	NavigateErr error
	QueryErr    error
	ClickErrs   map[string]error

	// Recorded interactions.
	NavigatedURLs []string
	ClickedIDs    []string
	TypedText     map[string]string
	ScrollCount   int
	ReloadCount   int
	Closed        bool

	// WaitForResult is returned by WaitFor; defaults to found.
	WaitForFound bool
}

// NewMockPage creates a mock page revealing views in order
func NewMockPage(views ...[]*MockElement) *MockPage {
	return &MockPage{
		Views:        views,
		ClickErrs:    make(map[string]error),
		TypedText:    make(map[string]string),
		WaitForFound: true,
	}
}

func (p *MockPage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NavigatedURLs = append(p.NavigatedURLs, url)
	if p.NavigateErr != nil {
		return errs.NewSourceUnavailable("failed to load "+url, p.NavigateErr)
	}
	return nil
}

func (p *MockPage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.QueryErr != nil {
		return nil, errs.NewSourceUnavailable("element query failed", p.QueryErr)
	}
	if scripted, ok := p.Overrides[selector]; ok {
		elements := make([]Element, 0, len(scripted))
		for _, el := range scripted {
			elements = append(elements, el)
		}
		return elements, nil
	}
	view := p.currentView()
	elements := make([]Element, 0, len(view))
	for _, el := range view {
		elements = append(elements, el)
	}
	return elements, nil
}

func (p *MockPage) QueryOne(ctx context.Context, root Element, selector string) (Element, bool, error) {
	el, ok := root.(*MockElement)
	if !ok {
		return nil, false, nil
	}
	child, ok := el.Children[selector]
	if !ok {
		return nil, false, nil
	}
	return child, true, nil
}

func (p *MockPage) Text(ctx context.Context, el Element) (string, error) {
	me, ok := el.(*MockElement)
	if !ok {
		return "", nil
	}
	return me.TextContent, nil
}

func (p *MockPage) Attribute(ctx context.Context, el Element, name string) (string, bool, error) {
	me, ok := el.(*MockElement)
	if !ok {
		return "", false, nil
	}
	v, found := me.Attrs[name]
	return v, found, nil
}

func (p *MockPage) OuterHTML(ctx context.Context, el Element) (string, error) {
	me, ok := el.(*MockElement)
	if !ok {
		return "", nil
	}
	return me.HTML, nil
}

func (p *MockPage) Click(ctx context.Context, el Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := el.Handle()
	p.ClickedIDs = append(p.ClickedIDs, id)
	if err, ok := p.ClickErrs[id]; ok {
		return errs.NewAction("click failed on "+id, err)
	}
	return nil
}

func (p *MockPage) Type(ctx context.Context, el Element, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TypedText[el.Handle()] = text
	return nil
}

// ScrollBy advances to the next scripted view
func (p *MockPage) ScrollBy(ctx context.Context, pixels int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ScrollCount++
	if p.viewIdx < len(p.Views)-1 {
		p.viewIdx++
	}
	return nil
}

func (p *MockPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	return p.WaitForFound, nil
}

// Reload rewinds to the first scripted view
func (p *MockPage) Reload(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ReloadCount++
	p.viewIdx = 0
	return nil
}

func (p *MockPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

func (p *MockPage) currentView() []*MockElement {
	if len(p.Views) == 0 {
		return nil
	}
	if p.viewIdx >= len(p.Views) {
		return p.Views[len(p.Views)-1]
	}
	return p.Views[p.viewIdx]
}

var _ Page = (*MockPage)(nil)
