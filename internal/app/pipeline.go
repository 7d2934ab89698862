package app

import (
	"context"
	"errors"
	"time"

	"github.com/bft-labs/penpal/internal/domain"
	"github.com/bft-labs/penpal/internal/ports"
)

// mergeTimeout bounds the final merge once the run context is canceled.
const mergeTimeout = 30 * time.Second

// Report summarizes one pipeline run.
type Report struct {
	Crawl    CrawlResult
	Merge    MergeResult
	Snapshot string
}

// Pipeline runs login, crawl and merge over one browser session.
type Pipeline struct {
	browser  ports.Browser
	auth     *Authenticator
	crawler  *Crawler
	store    *DedupStore
	status   ports.StatusRepository
	snapshot string
	now      func() time.Time
	logger   ports.Logger
}

// NewPipeline wires the stages. snapshotName is the table name the run's new
// records are written to. status may be nil.
func NewPipeline(
	browser ports.Browser,
	auth *Authenticator,
	crawler *Crawler,
	store *DedupStore,
	status ports.StatusRepository,
	snapshotName string,
	logger ports.Logger,
) *Pipeline {
	return &Pipeline{
		browser:  browser,
		auth:     auth,
		crawler:  crawler,
		store:    store,
		status:   status,
		snapshot: snapshotName,
		now:      time.Now,
		logger:   logger,
	}
}

// Run executes the pipeline. The browser is closed before Run returns. When
// the crawl fails or is canceled the records gathered so far are merged
// anyway and the crawl error is returned.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	st := domain.RunStatus{StartedAt: p.now()}
	rep, err := p.run(ctx)

	st.FinishedAt = p.now()
	st.Pages = rep.Crawl.Pages
	st.Candidates = rep.Crawl.Candidates
	st.Extracted = len(rep.Crawl.Records)
	st.Skipped = rep.Crawl.Skipped
	st.NewRecords = rep.Merge.Written
	st.MasterSize = rep.Merge.MasterSize
	st.Snapshot = rep.Snapshot
	if err != nil {
		st.Outcome = domain.OutcomeAborted
		st.Error = err.Error()
		p.logger.Error("run aborted",
			ports.Int("records", len(rep.Crawl.Records)),
			ports.Int("new_records", rep.Merge.Written),
			ports.Err(err),
		)
	} else {
		st.Outcome = domain.OutcomeCompleted
		p.logger.Info("run completed",
			ports.Int("pages", rep.Crawl.Pages),
			ports.Int("records", len(rep.Crawl.Records)),
			ports.Int("skipped", rep.Crawl.Skipped),
			ports.Int("new_records", rep.Merge.Written),
			ports.Int("master_size", rep.Merge.MasterSize),
		)
	}

	if p.status != nil {
		if serr := p.status.Save(context.WithoutCancel(ctx), st); serr != nil {
			p.logger.Warn("failed to save run status", ports.Err(serr))
		}
	}
	return rep, err
}

func (p *Pipeline) run(ctx context.Context) (rep Report, err error) {
	defer func() {
		if cerr := p.browser.Close(); cerr != nil {
			p.logger.Warn("failed to close browser", ports.Err(cerr))
		}
	}()

	if err := p.auth.Login(ctx); err != nil {
		return rep, err
	}

	var crawlErr error
	rep.Crawl, crawlErr = p.crawler.Crawl(ctx)
	if crawlErr != nil {
		p.logger.Warn("crawl stopped early",
			ports.Int("records", len(rep.Crawl.Records)),
			ports.Err(crawlErr),
		)
	}

	batch := domain.NewBatch()
	for _, r := range rep.Crawl.Records {
		batch.Add(r)
	}

	p.logger.Info("merging batch", ports.Int("records", batch.Size()))

	mergeCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		mergeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), mergeTimeout)
		defer cancel()
	}
	rep.Merge, err = p.store.Merge(mergeCtx, batch, p.snapshot)
	if err != nil {
		return rep, errors.Join(crawlErr, err)
	}
	if rep.Merge.Written > 0 || rep.Merge.MasterUpdated {
		rep.Snapshot = p.snapshot
	}
	return rep, crawlErr
}
