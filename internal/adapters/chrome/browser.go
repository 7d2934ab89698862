// Package chrome implements ports.Browser on a real Chrome instance driven
// over the DevTools protocol with chromedp.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/bft-labs/penpal/internal/domain"
	"github.com/bft-labs/penpal/internal/ports"
)

// Options configures the Chrome process.
type Options struct {
	// Headless hides the browser window.
	Headless bool
	// ExecPath overrides the Chrome binary lookup. Empty searches PATH.
	ExecPath string
	// UserAgent overrides the browser's user agent string.
	UserAgent string
}

// Browser is one Chrome tab. Frame focus is tracked as a stack of iframe
// nodes; queries run from the innermost one.
type Browser struct {
	logger ports.Logger

	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	tabCtx      context.Context
	cancelTab   context.CancelFunc

	mu     sync.Mutex
	frames []*cdp.Node
	closed bool
}

// NewBrowser launches Chrome and opens a tab. The process lives until Close,
// independent of ctx; ctx only bounds the launch.
func NewBrowser(ctx context.Context, opts Options, logger ports.Logger) (*Browser, error) {
	alloc := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		// Cross-origin frames must share the tab's process to be queried.
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.ExecPath != "" {
		alloc = append(alloc, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		alloc = append(alloc, chromedp.UserAgent(opts.UserAgent))
	}

	b := &Browser{logger: logger}
	b.allocCtx, b.cancelAlloc = chromedp.NewExecAllocator(context.Background(), alloc...)
	b.tabCtx, b.cancelTab = chromedp.NewContext(b.allocCtx)

	// An empty Run starts the process and attaches to the first tab.
	if err := b.run(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	logger.Info("chrome started", ports.Bool("headless", opts.Headless))
	return b, nil
}

// run executes actions on the tab, aborting when ctx ends.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return domain.ErrBrowserClosed
	}

	runCtx, cancel := context.WithCancel(b.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	if err := b.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	b.mu.Lock()
	b.frames = nil
	b.mu.Unlock()
	return nil
}

func (b *Browser) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := b.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

func (b *Browser) Find(ctx context.Context, selector string) (ports.Element, error) {
	return b.findFrom(ctx, b.root(), selector)
}

func (b *Browser) FindAll(ctx context.Context, selector string) ([]ports.Element, error) {
	return b.findAllFrom(ctx, b.root(), selector)
}

func (b *Browser) WaitPresent(ctx context.Context, selector string, timeout time.Duration) (ports.Element, error) {
	return b.wait(ctx, selector, timeout, false)
}

func (b *Browser) WaitClickable(ctx context.Context, selector string, timeout time.Duration) (ports.Element, error) {
	return b.wait(ctx, selector, timeout, true)
}

func (b *Browser) SwitchToFrame(ctx context.Context, frame ports.Element) error {
	e, ok := frame.(*element)
	if !ok {
		return fmt.Errorf("chrome: foreign element %T", frame)
	}
	if e.node.NodeName != "IFRAME" && e.node.NodeName != "FRAME" {
		return fmt.Errorf("chrome: switch to <%s>: not a frame", e.node.LocalName)
	}
	b.mu.Lock()
	b.frames = append(b.frames, e.node)
	b.mu.Unlock()
	return ctx.Err()
}

func (b *Browser) SwitchToDefault(ctx context.Context) error {
	b.mu.Lock()
	b.frames = nil
	b.mu.Unlock()
	return nil
}

// Close terminates the tab and the Chrome process.
func (b *Browser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.frames = nil
	b.mu.Unlock()

	b.cancelTab()
	b.cancelAlloc()
	return nil
}

func (b *Browser) root() *cdp.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(b.frames); n > 0 {
		return b.frames[n-1]
	}
	return nil
}

func (b *Browser) wait(ctx context.Context, selector string, timeout time.Duration, clickable bool) (ports.Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	scope := []chromedp.QueryOption{chromedp.ByQuery}
	if r := b.root(); r != nil {
		scope = append(scope, chromedp.FromNode(r))
	}

	var nodes []*cdp.Node
	var actions []chromedp.Action
	if clickable {
		actions = append(actions,
			chromedp.WaitEnabled(selector, scope...),
			chromedp.Nodes(selector, &nodes, append(scope, chromedp.NodeVisible)...),
		)
	} else {
		actions = append(actions, chromedp.Nodes(selector, &nodes, scope...))
	}

	err := b.run(waitCtx, actions...)
	switch {
	case err == nil && len(nodes) > 0:
		return &element{b: b, node: nodes[0]}, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err == nil, errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("wait for %q: %w", selector, domain.ErrTimeout)
	default:
		return nil, fmt.Errorf("wait for %q: %w", selector, err)
	}
}

func (b *Browser) findFrom(ctx context.Context, from *cdp.Node, selector string) (ports.Element, error) {
	els, err := b.findAllFrom(ctx, from, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%q: %w", selector, domain.ErrElementNotFound)
	}
	return els[0], nil
}

func (b *Browser) findAllFrom(ctx context.Context, from *cdp.Node, selector string) ([]ports.Element, error) {
	var nodes []*cdp.Node
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if from != nil {
		opts = append(opts, chromedp.FromNode(from))
	}
	if err := b.run(ctx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	out := make([]ports.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{b: b, node: n})
	}
	return out, nil
}
