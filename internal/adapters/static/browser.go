// Package static implements ports.Browser over plain HTTP and goquery.
//
// It fetches documents without running scripts. Links navigate, submit
// controls post their form, and iframes are fetched from their src. Waits
// resolve immediately against the fetched snapshot because a static
// document never changes on its own. The driver suits server-rendered sites
// and drives the pipeline in tests.
package static

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bft-labs/penpal/internal/domain"
	"github.com/bft-labs/penpal/internal/ports"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// Browser is a script-less browser session. The HTTP client should carry a
// cookie jar so the authenticated session survives navigation.
type Browser struct {
	client ports.HTTPClient
	logger ports.Logger

	page   *document
	frames []*document // focus stack; the last entry has focus
	closed bool
}

type document struct {
	url *url.URL
	doc *goquery.Document
}

// NewBrowser creates a session that issues requests through client.
func NewBrowser(client ports.HTTPClient, logger ports.Logger) *Browser {
	return &Browser{client: client, logger: logger}
}

// Navigate loads rawURL as the top-level document.
func (b *Browser) Navigate(ctx context.Context, rawURL string) error {
	target, err := b.resolve(b.page, rawURL)
	if err != nil {
		return err
	}
	d, err := b.fetch(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	b.page = d
	b.frames = nil
	return nil
}

// CurrentURL returns the final URL of the top-level document.
func (b *Browser) CurrentURL(ctx context.Context) (string, error) {
	if b.page == nil {
		return "", nil
	}
	return b.page.url.String(), nil
}

// Find returns the first match in the focused document.
func (b *Browser) Find(ctx context.Context, selector string) (ports.Element, error) {
	d, err := b.focus()
	if err != nil {
		return nil, err
	}
	return first(b, d, d.doc.Selection, selector)
}

// FindAll returns every match in the focused document.
func (b *Browser) FindAll(ctx context.Context, selector string) ([]ports.Element, error) {
	d, err := b.focus()
	if err != nil {
		return nil, err
	}
	return all(b, d, d.doc.Selection, selector), nil
}

// WaitPresent reports a missing element as a timeout without sleeping.
func (b *Browser) WaitPresent(ctx context.Context, selector string, timeout time.Duration) (ports.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	el, err := b.Find(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("wait for %q: %w", selector, domain.ErrTimeout)
	}
	return el, nil
}

// WaitClickable requires the match to be visible and enabled.
func (b *Browser) WaitClickable(ctx context.Context, selector string, timeout time.Duration) (ports.Element, error) {
	el, err := b.WaitPresent(ctx, selector, timeout)
	if err != nil {
		return nil, err
	}
	e := el.(*element)
	if !visible(e.sel) || disabled(e.sel) {
		return nil, fmt.Errorf("wait for clickable %q: %w", selector, domain.ErrTimeout)
	}
	return el, nil
}

// SwitchToFrame fetches the iframe's src and focuses its document.
func (b *Browser) SwitchToFrame(ctx context.Context, frame ports.Element) error {
	e, ok := frame.(*element)
	if !ok {
		return fmt.Errorf("static: foreign element %T", frame)
	}
	if tag := goquery.NodeName(e.sel); tag != "iframe" && tag != "frame" {
		return fmt.Errorf("static: switch to <%s>: not a frame", tag)
	}
	src, ok := e.sel.Attr("src")
	if !ok || src == "" {
		return fmt.Errorf("static: frame has no src: %w", domain.ErrElementNotFound)
	}
	target, err := b.resolve(e.doc, src)
	if err != nil {
		return err
	}
	d, err := b.fetch(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	b.frames = append(b.frames, d)
	return nil
}

// SwitchToDefault focuses the top-level document.
func (b *Browser) SwitchToDefault(ctx context.Context) error {
	b.frames = nil
	return nil
}

// Close ends the session.
func (b *Browser) Close() error {
	b.closed = true
	b.page = nil
	b.frames = nil
	return nil
}

func (b *Browser) focus() (*document, error) {
	if b.closed {
		return nil, domain.ErrBrowserClosed
	}
	if n := len(b.frames); n > 0 {
		return b.frames[n-1], nil
	}
	if b.page == nil {
		return nil, fmt.Errorf("static: no document loaded")
	}
	return b.page, nil
}

func (b *Browser) resolve(base *document, ref string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", ref, err)
	}
	if base != nil {
		u = base.url.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("static: url %q is not absolute", ref)
	}
	return u, nil
}

func (b *Browser) fetch(ctx context.Context, method string, target *url.URL, form url.Values) (*document, error) {
	if b.closed {
		return nil, domain.ErrBrowserClosed
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b.logger.Warn("non-success response",
			ports.String("url", target.String()),
			ports.Int("status", resp.StatusCode),
		)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	return &document{url: final, doc: doc}, nil
}

// replace swaps old for d after a navigation that happened inside old.
func (b *Browser) replace(old, d *document) {
	if old == b.page {
		b.page = d
		b.frames = nil
		return
	}
	for i, f := range b.frames {
		if f == old {
			b.frames = append(b.frames[:i], d)
			return
		}
	}
	// The document lost focus before the click; treat as top-level.
	b.page = d
	b.frames = nil
}

func first(b *Browser, d *document, root *goquery.Selection, selector string) (ports.Element, error) {
	s := root.Find(selector)
	if s.Length() == 0 {
		return nil, fmt.Errorf("%q: %w", selector, domain.ErrElementNotFound)
	}
	return &element{b: b, doc: d, sel: s.First()}, nil
}

func all(b *Browser, d *document, root *goquery.Selection, selector string) []ports.Element {
	s := root.Find(selector)
	out := make([]ports.Element, 0, s.Length())
	s.Each(func(_ int, item *goquery.Selection) {
		out = append(out, &element{b: b, doc: d, sel: item})
	})
	return out
}

func visible(s *goquery.Selection) bool {
	for n := s; n.Length() > 0; n = n.Parent() {
		if _, hidden := n.Attr("hidden"); hidden {
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(n.AttrOr("style", "")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

func disabled(s *goquery.Selection) bool {
	_, ok := s.Attr("disabled")
	return ok
}
