package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"feedbot/pkg/config"
	errs "feedbot/pkg/errors"
	"feedbot/pkg/logger"
)

// ChromePage drives a headless Chrome tab via chromedp. One ChromePage
// backs exactly one run; it is not safe for concurrent use.
type ChromePage struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	limiter     *rate.Limiter
	cfg         config.BrowserConfig
	logger      logger.Logger
}

// chromeElement wraps a CDP node handle
type chromeElement struct {
	node *cdp.Node
}

func (e chromeElement) Handle() string {
	return fmt.Sprintf("node-%d", e.node.NodeID)
}

// NewChromePage launches a browser tab with the configured options
func NewChromePage(cfg config.BrowserConfig, log logger.Logger) (*ChromePage, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1280, 900),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 60
	}

	return &ChromePage{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		cfg:         cfg,
		logger:      log,
	}, nil
}

// SetCookies injects session cookies before navigation
func (p *ChromePage) SetCookies(ctx context.Context, domain string, cookies map[string]string) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for name, value := range cookies {
			err := network.SetCookie(name, value).
				WithDomain(domain).
				WithPath("/").
				WithSecure(true).
				WithHTTPOnly(true).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("set cookie %s: %w", name, err)
			}
		}
		return nil
	}))
}

// Navigate loads url and waits for the body to be ready
func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	p.logger.DebugWithFields("navigating", map[string]interface{}{"url": url})

	navCtx, cancel := context.WithTimeout(p.ctx, p.cfg.NavTimeout)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return errs.NewSourceUnavailable(fmt.Sprintf("failed to load %s", url), err)
	}
	return nil
}

// QueryAll returns handles for all elements matching selector
func (p *ChromePage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, errs.NewSourceUnavailable("element query failed", err)
	}

	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, chromeElement{node: n})
	}
	return elements, nil
}

// QueryOne returns the first descendant of root matching selector
func (p *ChromePage) QueryOne(ctx context.Context, root Element, selector string) (Element, bool, error) {
	parent, err := p.toNode(root)
	if err != nil {
		return nil, false, err
	}

	var nodes []*cdp.Node
	err = p.run(ctx, chromedp.Nodes(selector, &nodes,
		chromedp.ByQuery, chromedp.FromNode(parent), chromedp.AtLeast(0)))
	if err != nil {
		return nil, false, errs.NewSourceUnavailable("element query failed", err)
	}
	if len(nodes) == 0 {
		return nil, false, nil
	}
	return chromeElement{node: nodes[0]}, true, nil
}

// Text returns the visible text content of el
func (p *ChromePage) Text(ctx context.Context, el Element) (string, error) {
	node, err := p.toNode(el)
	if err != nil {
		return "", err
	}
	var text string
	err = p.run(ctx, chromedp.Text([]cdp.NodeID{node.NodeID}, &text, chromedp.ByNodeID))
	return text, err
}

// Attribute returns the named attribute of el and whether it is set
func (p *ChromePage) Attribute(ctx context.Context, el Element, name string) (string, bool, error) {
	node, err := p.toNode(el)
	if err != nil {
		return "", false, err
	}
	var value string
	var ok bool
	err = p.run(ctx, chromedp.AttributeValue([]cdp.NodeID{node.NodeID}, name, &value, &ok, chromedp.ByNodeID))
	return value, ok, err
}

// OuterHTML returns the serialized HTML of el
func (p *ChromePage) OuterHTML(ctx context.Context, el Element) (string, error) {
	node, err := p.toNode(el)
	if err != nil {
		return "", err
	}
	var html string
	err = p.run(ctx, chromedp.OuterHTML([]cdp.NodeID{node.NodeID}, &html, chromedp.ByNodeID))
	return html, err
}

// Click dispatches a click on el
func (p *ChromePage) Click(ctx context.Context, el Element) error {
	node, err := p.toNode(el)
	if err != nil {
		return err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	return p.run(ctx, chromedp.Click([]cdp.NodeID{node.NodeID}, chromedp.ByNodeID))
}

// Type focuses el and types text into it
func (p *ChromePage) Type(ctx context.Context, el Element, text string) error {
	node, err := p.toNode(el)
	if err != nil {
		return err
	}
	return p.run(ctx, chromedp.SendKeys([]cdp.NodeID{node.NodeID}, text, chromedp.ByNodeID))
}

// ScrollBy advances the viewport by pixels
func (p *ChromePage) ScrollBy(ctx context.Context, pixels int) error {
	return p.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", pixels), nil))
}

// WaitFor blocks until an element matching selector is visible or timeout
// elapses. A timeout is reported as (false, nil), not an error.
func (p *ChromePage) WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	waitCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err != nil {
		if waitCtx.Err() == context.DeadlineExceeded {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Reload refreshes the current document
func (p *ChromePage) Reload(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	navCtx, cancel := context.WithTimeout(p.ctx, p.cfg.NavTimeout)
	defer cancel()
	err := chromedp.Run(navCtx,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return errs.NewSourceUnavailable("reload failed", err)
	}
	return nil
}

// Close releases the tab and the browser process
func (p *ChromePage) Close() error {
	p.cancel()
	p.allocCancel()
	return nil
}

// run executes a chromedp action on the page with caller cancellation
func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(p.ctx, p.cfg.WaitTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(opCtx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (p *ChromePage) toNode(el Element) (*cdp.Node, error) {
	ce, ok := el.(chromeElement)
	if !ok {
		return nil, fmt.Errorf("element %s does not belong to this page", el.Handle())
	}
	return ce.node, nil
}

var _ Page = (*ChromePage)(nil)
