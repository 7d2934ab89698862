package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/penpal/internal/domain"
	"github.com/bft-labs/penpal/internal/ports"
)

// scope names the element a field selector is evaluated against.
type scope int

const (
	scopePanel scope = iota
	scopeAddress
)

// fieldRule locates one record field on a detail page.
type fieldRule struct {
	name     string
	scope    scope
	selector string
	optional bool
	set      func(*domain.Record, string)
}

// Extractor reads one detail page into a Record.
type Extractor struct {
	browser ports.Browser
	sel     Selectors
	timeout time.Duration
	rules   []fieldRule
	logger  ports.Logger
}

// NewExtractor creates an extractor using the detail-page selectors.
func NewExtractor(browser ports.Browser, sel Selectors, timeout time.Duration, logger ports.Logger) *Extractor {
	if timeout <= 0 {
		timeout = DefaultElementTimeout
	}
	return &Extractor{
		browser: browser,
		sel:     sel,
		timeout: timeout,
		rules:   addressRules(sel),
		logger:  logger,
	}
}

func addressRules(sel Selectors) []fieldRule {
	return []fieldRule{
		{name: "address_line1", scope: scopeAddress, selector: sel.AddressLine1,
			set: func(r *domain.Record, v string) { r.AddressLine1 = v }},
		{name: "address_line2", scope: scopeAddress, selector: sel.AddressLine2, optional: true,
			set: func(r *domain.Record, v string) { r.AddressLine2 = v }},
		{name: "city", scope: scopeAddress, selector: sel.City,
			set: func(r *domain.Record, v string) { r.City = v }},
		{name: "state", scope: scopeAddress, selector: sel.State,
			set: func(r *domain.Record, v string) { r.State = v }},
		{name: "zip_code", scope: scopeAddress, selector: sel.ZipCode,
			set: func(r *domain.Record, v string) { r.ZipCode = v }},
	}
}

// Extract navigates to the candidate's detail page and reads its record.
// Failures wrap domain.ErrExtraction.
func (e *Extractor) Extract(ctx context.Context, c domain.Candidate) (domain.Record, error) {
	rec, err := e.extract(ctx, c)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Record{}, ctx.Err()
		}
		return domain.Record{}, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, c.DisplayName, err)
	}
	return rec, nil
}

func (e *Extractor) extract(ctx context.Context, c domain.Candidate) (domain.Record, error) {
	if err := e.browser.Navigate(ctx, c.DetailURL); err != nil {
		return domain.Record{}, err
	}
	panel, err := e.browser.WaitPresent(ctx, e.sel.ContactPanel, e.timeout)
	if err != nil {
		return domain.Record{}, fmt.Errorf("contact panel: %w", err)
	}
	if err := panel.ScrollIntoView(ctx); err != nil {
		e.logger.Debug("scroll panel failed", ports.Err(err))
	}

	var rec domain.Record
	rec.FirstName, rec.LastName = domain.SplitName(c.DisplayName)

	id, err := e.inmateID(ctx, panel)
	if err != nil {
		return domain.Record{}, err
	}
	rec.InmateID = id

	address, err := panel.Find(ctx, e.sel.AddressBlock)
	if err != nil {
		return domain.Record{}, fmt.Errorf("address block: %w", err)
	}
	scopes := map[scope]ports.Element{scopePanel: panel, scopeAddress: address}
	for _, rule := range e.rules {
		v, err := text(ctx, scopes[rule.scope], rule.selector)
		switch {
		case err == nil:
			rule.set(&rec, v)
		case rule.optional && errors.Is(err, domain.ErrElementNotFound):
		default:
			return domain.Record{}, fmt.Errorf("%s: %w", rule.name, err)
		}
	}
	return rec, nil
}

// inmateID reads the positional id cell, then falls back to scanning every
// panel cell for a '#'-prefixed first line. When no cell carries a '#', the
// positional cell's first line is taken as is.
func (e *Extractor) inmateID(ctx context.Context, panel ports.Element) (string, error) {
	var bare string
	if v, err := text(ctx, panel, e.sel.InmateCell); err == nil {
		id, ok := domain.ParseInmateID(v)
		if ok && id != "" {
			return id, nil
		}
		if !ok {
			bare = id
		}
	}

	cells, err := panel.FindAll(ctx, e.sel.PanelCell)
	if err != nil {
		return "", fmt.Errorf("inmate_id: %w", err)
	}
	for _, cell := range cells {
		v, err := cell.Text(ctx)
		if err != nil {
			continue
		}
		if id, ok := domain.ParseInmateID(v); ok && id != "" {
			e.logger.Debug("inmate id found by scan", ports.String("id", id))
			return id, nil
		}
	}
	if bare != "" {
		e.logger.Debug("inmate id without '#'", ports.String("id", bare))
		return bare, nil
	}
	return "", fmt.Errorf("inmate_id: %w", domain.ErrElementNotFound)
}

func text(ctx context.Context, root ports.Element, selector string) (string, error) {
	el, err := root.Find(ctx, selector)
	if err != nil {
		return "", err
	}
	v, err := el.Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}
