// Package scheduler starts scrape runs on a cron schedule and keeps the event
// streams trimmed.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"sjsage522/jobworker/logger"
	apperrors "sjsage522/jobworker/pkg/errors"
	"sjsage522/jobworker/services/worker"
)

// TrimSpec is how often the event streams are trimmed
const TrimSpec = "@every 1h"

// Starter starts a background scrape run
type Starter interface {
	Start(opts worker.RunOptions) (worker.Status, error)
}

// Trimmer trims event streams to their configured length
type Trimmer interface {
	TrimStreams(ctx context.Context) error
}

// Scheduler wraps robfig/cron
type Scheduler struct {
	cron    *cron.Cron
	starter Starter
	trimmer Trimmer
	spec    string
	opts    worker.RunOptions
	log     *logger.Logger
}

// New creates a Scheduler that starts a run with opts on every tick of spec.
// An empty spec only schedules stream trimming.
func New(starter Starter, trimmer Trimmer, spec string, opts worker.RunOptions) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		starter: starter,
		trimmer: trimmer,
		spec:    spec,
		opts:    opts,
		log:     logger.ForScheduler(),
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	if s.spec != "" {
		if _, err := s.cron.AddFunc(s.spec, s.startRun); err != nil {
			return apperrors.NewConfiguration(fmt.Sprintf("invalid SCRAPE_SCHEDULE %q", s.spec), err)
		}
	}
	if s.trimmer != nil {
		if _, err := s.cron.AddFunc(TrimSpec, func() { s.trim(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc: %w", err)
		}
	}

	s.cron.Start()
	s.log.Info().Str("spec", s.spec).Msg("Scheduler started")
	return nil
}

// Stop stops the cron loop and waits for running jobs to return
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) startRun() {
	status, err := s.starter.Start(s.opts)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			s.log.Info().Str("run_id", status.RunID).Msg("Scrape already running, skipping scheduled run")
			return
		}
		logger.LogError("scheduler", err, "failed to start scheduled run")
		return
	}
	s.log.Info().Str("run_id", status.RunID).Int("limit", status.Limit).Msg("Scheduled scrape started")
}

func (s *Scheduler) trim(ctx context.Context) {
	if err := s.trimmer.TrimStreams(ctx); err != nil {
		logger.LogError("scheduler", err, "failed to trim streams")
	}
}
