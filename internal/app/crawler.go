package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/penpal/internal/domain"
	"github.com/bft-labs/penpal/internal/ports"
)

// DefaultPageAttempts bounds reloads of a listing page that shows no rows.
const DefaultPageAttempts = 3

// CrawlConfig contains configuration for the pagination crawl.
type CrawlConfig struct {
	BaseURL        string
	StartPage      int
	MaxPages       int // 0 means unbounded
	PageAttempts   int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	DelayMin       time.Duration
	DelayMax       time.Duration
	ElementTimeout time.Duration
}

// CrawlResult is the outcome of a crawl, complete or partial.
type CrawlResult struct {
	Records    []domain.Record
	Pages      int
	Candidates int
	Skipped    int
}

// Crawler walks the listing pages and extracts every candidate's record.
type Crawler struct {
	config    CrawlConfig
	browser   ports.Browser
	extractor *Extractor
	sel       Selectors
	pacer     pacer
	logger    ports.Logger
}

// NewCrawler creates a crawler. Zero config values fall back to the package
// defaults, except the delays, where zero disables the pause.
func NewCrawler(config CrawlConfig, browser ports.Browser, extractor *Extractor, sel Selectors, logger ports.Logger) *Crawler {
	if config.PageAttempts <= 0 {
		config.PageAttempts = DefaultPageAttempts
	}
	if config.BackoffInitial <= 0 {
		config.BackoffInitial = DefaultBackoffInitial
	}
	if config.BackoffMax <= 0 {
		config.BackoffMax = DefaultBackoffMax
	}
	if config.ElementTimeout <= 0 {
		config.ElementTimeout = DefaultElementTimeout
	}
	return &Crawler{
		config:    config,
		browser:   browser,
		extractor: extractor,
		sel:       sel,
		pacer:     newPacer(config.DelayMin, config.DelayMax),
		logger:    logger,
	}
}

// StartURL returns the first listing URL: BaseURL with its page parameter
// set when StartPage is positive.
func StartURL(baseURL string, startPage int) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if startPage > 0 {
		q := u.Query()
		q.Set("page", strconv.Itoa(startPage))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Crawl visits listing pages until one has no next link. It always returns
// the records gathered so far, also alongside an error.
func (c *Crawler) Crawl(ctx context.Context) (CrawlResult, error) {
	var res CrawlResult

	next, err := StartURL(c.config.BaseURL, c.config.StartPage)
	if err != nil {
		return res, err
	}
	visited := make(map[string]bool)

	for next != "" {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if c.config.MaxPages > 0 && res.Pages >= c.config.MaxPages {
			c.logger.Info("page limit reached", ports.Int("max_pages", c.config.MaxPages))
			break
		}
		visited[next] = true

		candidates, nextURL, err := c.loadPage(ctx, next)
		if err != nil {
			return res, err
		}
		res.Pages++
		res.Candidates += len(candidates)
		c.logger.Info("listing page",
			ports.Int("page", res.Pages),
			ports.String("url", next),
			ports.Int("candidates", len(candidates)),
		)

		for _, cand := range candidates {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			rec, err := c.extractor.Extract(ctx, cand)
			if err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				res.Skipped++
				c.logger.Warn("skipping candidate",
					ports.String("name", cand.DisplayName),
					ports.String("url", cand.DetailURL),
					ports.Err(err),
				)
			} else {
				res.Records = append(res.Records, rec)
				c.logger.Info("record extracted",
					ports.String("name", cand.DisplayName),
					ports.String("inmate_id", rec.InmateID),
					ports.Int("total", len(res.Records)),
				)
			}
			if err := c.pacer.Wait(ctx); err != nil {
				return res, err
			}
		}

		switch {
		case nextURL == "":
			c.logger.Info("last page reached", ports.Int("pages", res.Pages))
		case visited[nextURL]:
			c.logger.Warn("next link revisits a page, stopping", ports.String("url", nextURL))
			nextURL = ""
		default:
			if err := c.pacer.Wait(ctx); err != nil {
				return res, err
			}
		}
		next = nextURL
	}
	return res, nil
}

// loadPage opens a listing page, retrying while it shows no rows, and reads
// its candidates and next link.
func (c *Crawler) loadPage(ctx context.Context, pageURL string) ([]domain.Candidate, string, error) {
	backoff := newBackoff(c.config.BackoffInitial, c.config.BackoffMax)

	var lastErr error
	for attempt := 1; attempt <= c.config.PageAttempts; attempt++ {
		candidates, next, err := c.readPage(ctx, pageURL)
		if err == nil {
			return candidates, next, nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		lastErr = err
		c.logger.Warn("listing page failed",
			ports.String("url", pageURL),
			ports.Int("attempt", attempt),
			ports.Err(err),
		)
		if attempt < c.config.PageAttempts {
			if err := backoff.Wait(ctx); err != nil {
				return nil, "", err
			}
		}
	}
	return nil, "", fmt.Errorf("%w: %s: %w", domain.ErrPageUnavailable, pageURL, lastErr)
}

func (c *Crawler) readPage(ctx context.Context, pageURL string) ([]domain.Candidate, string, error) {
	if err := c.browser.Navigate(ctx, pageURL); err != nil {
		return nil, "", err
	}
	if _, err := c.browser.WaitPresent(ctx, c.sel.ListingRow, c.config.ElementTimeout); err != nil {
		return nil, "", fmt.Errorf("listing rows: %w", err)
	}

	rows, err := c.browser.FindAll(ctx, c.sel.ListingRow)
	if err != nil {
		return nil, "", err
	}
	candidates := make([]domain.Candidate, 0, len(rows))
	seen := make(map[domain.Candidate]bool, len(rows))
	for i, row := range rows {
		cand, err := c.candidate(ctx, row)
		if err != nil {
			c.logger.Warn("skipping listing row", ports.Int("row", i), ports.Err(err))
			continue
		}
		if seen[cand] {
			continue
		}
		seen[cand] = true
		candidates = append(candidates, cand)
	}

	next := ""
	link, err := c.browser.Find(ctx, c.sel.NextLink)
	switch {
	case err == nil:
		if next, err = link.Attribute(ctx, "href"); err != nil {
			return nil, "", fmt.Errorf("next link: %w", err)
		}
	case !errors.Is(err, domain.ErrElementNotFound):
		return nil, "", fmt.Errorf("next link: %w", err)
	}
	return candidates, strings.TrimSpace(next), nil
}

// candidate reads the secondary anchor of a row; the first anchor is the
// thumbnail link.
func (c *Crawler) candidate(ctx context.Context, row ports.Element) (domain.Candidate, error) {
	anchors, err := row.FindAll(ctx, c.sel.RowAnchor)
	if err != nil {
		return domain.Candidate{}, err
	}
	if len(anchors) < 2 {
		return domain.Candidate{}, fmt.Errorf("row has %d anchors: %w", len(anchors), domain.ErrElementNotFound)
	}
	a := anchors[1]
	href, err := a.Attribute(ctx, "href")
	if err != nil {
		return domain.Candidate{}, err
	}
	name, err := a.Text(ctx)
	if err != nil {
		return domain.Candidate{}, err
	}
	cand := domain.Candidate{DisplayName: strings.TrimSpace(name), DetailURL: strings.TrimSpace(href)}
	if cand.DetailURL == "" {
		return domain.Candidate{}, fmt.Errorf("row anchor has no href: %w", domain.ErrElementNotFound)
	}
	return cand, nil
}
