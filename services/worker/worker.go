package worker

import (
	"context"
	"time"

	"sjsage522/jobworker/config"
	"sjsage522/jobworker/helpers"
	"sjsage522/jobworker/internal/crawler"
	"sjsage522/jobworker/logger"
	apperrors "sjsage522/jobworker/pkg/errors"
	"sjsage522/jobworker/services/bulk"
	"sjsage522/jobworker/services/cache"
)

// Run defaults
const (
	DefaultLimit   = 50
	DefaultBaseURL = "https://www.actuarylist.com/experience-levels/senior-actuary"
	DetailDelay    = 400 * time.Millisecond

	// BlockKey marks the listing site as rate limiting us
	BlockKey = "jobworker:blocked:actuarylist"
)

// RunOptions configures one scrape run
type RunOptions struct {
	Limit    int
	Headless bool
	APIBase  string
	BaseURL  string
}

// Progress is called after every record added to the batch
type Progress func(fetched, limit int)

// Submitter hands a finished batch to the ingestion API
type Submitter interface {
	Submit(ctx context.Context, apiBase string, records []crawler.JobRecord) (*bulk.Report, error)
}

// Worker drives one browser session through a listing page and its detail
// pages, then submits what it found
type Worker struct {
	newSession  crawler.SessionFactory
	submitter   Submitter
	guard       *cache.BlockGuard
	detailFetch string
	delay       time.Duration
	sleep       func(time.Duration)
	logger      *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(
	newSession crawler.SessionFactory,
	submitter Submitter,
	guard *cache.BlockGuard,
	detailFetch string,
) *Worker {
	return &Worker{
		newSession:  newSession,
		submitter:   submitter,
		guard:       guard,
		detailFetch: detailFetch,
		delay:       DetailDelay,
		sleep:       time.Sleep,
		logger:      logger.ForWorker(),
	}
}

// Run scrapes up to opts.Limit records and submits them. The browser session
// is closed before submission whatever the outcome of the scrape.
func (w *Worker) Run(ctx context.Context, opts RunOptions, progress Progress) (*bulk.Report, error) {
	if opts.Limit < 1 {
		opts.Limit = 1
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if blocked, left := w.guard.Blocked(); blocked {
		w.logger.Warn().Dur("retry_after", left).Msg("Listing site is blocking us, not starting")
		return nil, apperrors.NewRateLimit("worker", left)
	}

	start := time.Now()
	records, err := w.scrape(ctx, opts, progress)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeRateLimit) {
			w.block()
		}
		return nil, err
	}

	w.logger.Info().
		Int("records", len(records)).
		Int("limit", opts.Limit).
		Dur("elapsed", time.Since(start)).
		Msg("Scrape finished, submitting")

	return w.submitter.Submit(ctx, opts.APIBase, records)
}

func (w *Worker) scrape(ctx context.Context, opts RunOptions, progress Progress) ([]crawler.JobRecord, error) {
	session, err := w.newSession(ctx, opts.Headless)
	if err != nil {
		return nil, apperrors.NewBrowser("worker", "failed to start browser session", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to close browser session")
		}
	}()

	collector := crawler.NewLinkCollector(session)
	collector.BlockTime = w.guard.TTL()
	links, err := collector.Collect(ctx, opts.BaseURL, opts.Limit)
	if err != nil {
		return nil, err
	}

	source := w.source(session)
	records := make([]crawler.JobRecord, 0, opts.Limit)
	for _, link := range links {
		if len(records) >= opts.Limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := source.Document(ctx, link)
		if err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeRateLimit) {
				w.logger.Warn().Str("url", link).Msg("Rate limited on detail page, stopping early")
				w.block()
				break
			}
			w.logger.Warn().Err(err).Str("url", link).Msg("Failed to load detail page")
			continue
		}

		rec, ok := crawler.BuildRecord(doc, link)
		if !ok {
			w.logger.Debug().Err(apperrors.NewFatalPage("worker", link)).Msg("Skipping page")
			continue
		}
		records = append(records, *rec)
		if progress != nil {
			progress(len(records), opts.Limit)
		}
		w.sleep(helpers.Jitter(w.delay, 50*time.Millisecond, 200*time.Millisecond))
	}
	return records, nil
}

func (w *Worker) source(session crawler.Session) crawler.PageSource {
	if w.detailFetch == config.DetailFetchHTTP {
		return &crawler.HTTPSource{BlockTime: w.guard.TTL()}
	}
	return &crawler.SessionSource{Session: session, BlockTime: w.guard.TTL()}
}

func (w *Worker) block() {
	if err := w.guard.Block(); err != nil {
		logger.LogError("worker", err, "failed to store block marker")
		return
	}
	w.logger.Info().Dur("ttl", w.guard.TTL()).Msg("Stored rate-limit block")
}
