package chrome

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/bft-labs/penpal/internal/ports"
)

type element struct {
	b    *Browser
	node *cdp.Node
}

func (e *element) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

// Text returns the node's innerText.
func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.b.run(ctx, chromedp.Text(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return text, nil
}

// Attribute reads href and src as DOM properties so they come back
// absolute; everything else is the raw attribute.
func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	var value string
	var err error
	switch name {
	case "href", "src":
		var prop any
		err = e.b.run(ctx, chromedp.JavascriptAttribute(e.ids(), name, &prop, chromedp.ByNodeID))
		if s, ok := prop.(string); ok {
			value = s
		}
	default:
		var ok bool
		err = e.b.run(ctx, chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID))
	}
	if err != nil {
		return "", fmt.Errorf("read attribute %s: %w", name, err)
	}
	return value, nil
}

func (e *element) Find(ctx context.Context, selector string) (ports.Element, error) {
	return e.b.findFrom(ctx, e.node, selector)
}

func (e *element) FindAll(ctx context.Context, selector string) ([]ports.Element, error) {
	return e.b.findAllFrom(ctx, e.node, selector)
}

func (e *element) Click(ctx context.Context, strategy ports.ClickStrategy) error {
	var action chromedp.Action
	switch strategy {
	case ports.ClickDirect:
		action = chromedp.Click(e.ids(), chromedp.ByNodeID)
	case ports.ClickScripted:
		action = chromedp.ActionFunc(e.scriptClick)
	case ports.ClickPointer:
		action = chromedp.MouseClickNode(e.node)
	default:
		return fmt.Errorf("chrome: unknown click strategy %d", strategy)
	}
	if err := e.b.run(ctx, action); err != nil {
		return fmt.Errorf("%s click: %w", strategy, err)
	}
	return nil
}

// scriptClick invokes the element's own click() method, which bypasses
// overlays that intercept pointer events.
func (e *element) scriptClick(ctx context.Context) error {
	obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
	if err != nil {
		return err
	}
	_, exc, err := runtime.CallFunctionOn(`function() { this.click(); }`).
		WithObjectID(obj.ObjectID).
		Do(ctx)
	if err != nil {
		return err
	}
	if exc != nil {
		return fmt.Errorf("click script: %s", exc.Text)
	}
	return nil
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := e.b.run(ctx, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("send keys: %w", err)
	}
	return nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return e.b.run(ctx, chromedp.ScrollIntoView(e.ids(), chromedp.ByNodeID))
}
