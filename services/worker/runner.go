package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"sjsage522/jobworker/internal/jobs"
	"sjsage522/jobworker/logger"
	apperrors "sjsage522/jobworker/pkg/errors"
	"sjsage522/jobworker/services/bulk"
)

// Status is the progress of the current or last scrape run
type Status struct {
	Running    bool          `json:"running"`
	Fetched    int           `json:"fetched"`
	Limit      int           `json:"limit"`
	Error      *string       `json:"error"`
	StartedAt  *time.Time    `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at"`
	RunID      string        `json:"run_id,omitempty"`
	Summary    *jobs.Summary `json:"summary"`
}

// Scraper runs a single scrape
type Scraper interface {
	Run(ctx context.Context, opts RunOptions, progress Progress) (*bulk.Report, error)
}

// Runner allows at most one scrape in flight and exposes its progress.
// Every access to status goes through mu.
type Runner struct {
	ctx     context.Context
	scraper Scraper
	now     func() time.Time
	log     *logger.Logger

	mu     sync.Mutex
	status Status
	wg     sync.WaitGroup
}

// NewRunner creates a runner whose runs live as long as ctx
func NewRunner(ctx context.Context, scraper Scraper) *Runner {
	return &Runner{
		ctx:     ctx,
		scraper: scraper,
		now:     time.Now,
		log:     logger.ForWorker().WithField("stage", "runner"),
	}
}

// Start launches a run in the background. If one is already running the
// current status is returned with a conflict error and nothing is started.
func (r *Runner) Start(opts RunOptions) (Status, error) {
	if opts.Limit < 1 {
		opts.Limit = 1
	}

	r.mu.Lock()
	if r.status.Running {
		current := r.status
		r.mu.Unlock()
		return current, apperrors.NewConflict("runner", "already-running")
	}
	started := r.now()
	r.status = Status{
		Running:   true,
		Limit:     opts.Limit,
		StartedAt: &started,
		RunID:     uuid.NewString(),
	}
	current := r.status
	r.wg.Add(1)
	r.mu.Unlock()

	r.log.Info().
		Str("run_id", current.RunID).
		Int("limit", opts.Limit).
		Str("base_url", opts.BaseURL).
		Msg("Scrape run started")

	go r.run(current.RunID, opts)
	return current, nil
}

// Status returns a snapshot of the current or last run
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Wait blocks until no run is in flight
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(runID string, opts RunOptions) {
	defer r.wg.Done()

	report, err := r.scraper.Run(r.ctx, opts, func(fetched, limit int) {
		r.mu.Lock()
		r.status.Fetched = fetched
		r.status.Limit = limit
		r.mu.Unlock()
	})

	finished := r.now()
	r.mu.Lock()
	r.status.Running = false
	r.status.FinishedAt = &finished
	if err != nil {
		msg := err.Error()
		r.status.Error = &msg
	}
	if report != nil {
		summary := report.Summary
		r.status.Summary = &summary
	}
	r.mu.Unlock()

	if err != nil {
		logger.LogError("runner", err, "scrape run %s failed", runID)
		return
	}
	r.log.Info().Str("run_id", runID).Msg("Scrape run finished")
}
