package static

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/bft-labs/penpal/internal/ports"
)

type element struct {
	b   *Browser
	doc *document
	sel *goquery.Selection
}

func (e *element) Text(ctx context.Context) (string, error) {
	return renderText(e.sel), nil
}

// Attribute returns "" for a missing attribute. href and src resolve
// against the document URL the way a live DOM reports them.
func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	v, ok := e.sel.Attr(name)
	if !ok {
		return "", nil
	}
	if (name == "href" || name == "src") && v != "" {
		if u, err := e.b.resolve(e.doc, v); err == nil {
			return u.String(), nil
		}
	}
	return v, nil
}

func (e *element) Find(ctx context.Context, selector string) (ports.Element, error) {
	return first(e.b, e.doc, e.sel, selector)
}

func (e *element) FindAll(ctx context.Context, selector string) ([]ports.Element, error) {
	return all(e.b, e.doc, e.sel, selector), nil
}

// Click follows links and submits forms. Every strategy behaves the same
// without a script engine; other elements are inert.
func (e *element) Click(ctx context.Context, strategy ports.ClickStrategy) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch tag := goquery.NodeName(e.sel); {
	case tag == "a":
		href, ok := e.sel.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return nil
		}
		target, err := e.b.resolve(e.doc, href)
		if err != nil {
			return err
		}
		d, err := e.b.fetch(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		e.b.replace(e.doc, d)
		return nil

	case isSubmitter(e.sel):
		form := e.sel.Closest("form")
		if form.Length() == 0 {
			return nil
		}
		return e.submit(ctx, form)
	}
	return nil
}

func (e *element) submit(ctx context.Context, form *goquery.Selection) error {
	target, err := e.b.resolve(e.doc, form.AttrOr("action", ""))
	if err != nil {
		return err
	}
	values := formValues(form)
	if name, ok := e.sel.Attr("name"); ok && name != "" {
		values.Add(name, e.sel.AttrOr("value", ""))
	}

	var d *document
	if strings.EqualFold(form.AttrOr("method", "get"), "post") {
		d, err = e.b.fetch(ctx, http.MethodPost, target, values)
	} else {
		u := *target
		u.RawQuery = values.Encode()
		d, err = e.b.fetch(ctx, http.MethodGet, &u, nil)
	}
	if err != nil {
		return err
	}
	e.b.replace(e.doc, d)
	return nil
}

// SendKeys appends to the control's value attribute.
func (e *element) SendKeys(ctx context.Context, text string) error {
	cur := e.sel.AttrOr("value", "")
	e.sel.SetAttr("value", cur+text)
	return nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return ctx.Err()
}

func isSubmitter(s *goquery.Selection) bool {
	switch goquery.NodeName(s) {
	case "button":
		t := strings.ToLower(s.AttrOr("type", "submit"))
		return t == "submit"
	case "input":
		t := strings.ToLower(s.AttrOr("type", "text"))
		return t == "submit" || t == "image"
	}
	return false
}

func formValues(form *goquery.Selection) url.Values {
	values := url.Values{}
	form.Find("input, textarea, select").Each(func(_ int, c *goquery.Selection) {
		name, ok := c.Attr("name")
		if !ok || name == "" || disabled(c) {
			return
		}
		switch goquery.NodeName(c) {
		case "textarea":
			if v, typed := c.Attr("value"); typed {
				values.Add(name, v)
			} else {
				values.Add(name, c.Text())
			}
		case "select":
			opt := c.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = c.Find("option").First()
			}
			if opt.Length() > 0 {
				values.Add(name, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
			}
		default:
			switch strings.ToLower(c.AttrOr("type", "text")) {
			case "submit", "image", "button", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := c.Attr("checked"); !checked {
					return
				}
				values.Add(name, c.AttrOr("value", "on"))
			default:
				values.Add(name, c.AttrOr("value", ""))
			}
		}
	})
	return values
}

var blockTags = map[string]bool{
	"address": true, "article": true, "blockquote": true, "dd": true, "div": true,
	"dl": true, "dt": true, "fieldset": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "tbody": true,
	"td": true, "th": true, "thead": true, "tr": true, "ul": true,
}

// renderText approximates innerText: one line per block or <br>, runs of
// whitespace collapsed, blank lines dropped.
func renderText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		walkText(&b, n)
	}

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func walkText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "br":
			b.WriteByte('\n')
			return
		case "script", "style", "template":
			return
		}
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}
