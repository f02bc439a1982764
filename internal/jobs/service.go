package jobs

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"sjsage522/jobworker/logger"
	apperrors "sjsage522/jobworker/pkg/errors"
	"sjsage522/jobworker/services/publisher"
)

// Repository persists jobs. Lookups that find nothing return (nil, nil);
// Get, Update and Delete of a missing id return a not-found AppError, and a
// uniqueness violation returns a constraint AppError.
type Repository interface {
	FindBySourceURL(ctx context.Context, sourceURL string) (*Job, error)
	// FindByNaturalKey matches title, company and location case-insensitively
	// and posting_date exactly, where two missing dates are equal
	FindByNaturalKey(ctx context.Context, title, company, location string, postingDate *time.Time) (*Job, error)
	Create(ctx context.Context, job NewJob) (*Job, error)
	Get(ctx context.Context, id int64) (*Job, error)
	Update(ctx context.Context, id int64, patch Patch) (*Job, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, params ListParams) ([]Job, int, error)
}

// Service implements ingestion and queries over a Repository
type Service struct {
	repo            Repository
	events          publisher.Publisher
	defaultPageSize int
	maxPageSize     int
	log             *logger.Logger
	now             func() time.Time
}

// NewService creates a job service. events may be nil.
func NewService(repo Repository, events publisher.Publisher, defaultPageSize, maxPageSize int) *Service {
	if events == nil {
		events = publisher.Nop{}
	}
	return &Service{
		repo:            repo,
		events:          events,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		log:             logger.ForIngest(),
		now:             time.Now,
	}
}

// Ingest classifies and stores each item independently, in order. A failing
// item never stops the batch.
func (s *Service) Ingest(ctx context.Context, items []json.RawMessage, dryRun bool) *BulkResult {
	result := &BulkResult{Results: make([]ItemResult, 0, len(items))}
	for idx, raw := range items {
		r := s.ingestOne(ctx, raw, dryRun)
		r.Index = idx
		result.record(r)
	}
	s.log.Info().
		Int("items", len(items)).
		Bool("dry_run", dryRun).
		Int("inserted", result.Summary.Inserted).
		Int("skipped", result.Summary.Skipped).
		Int("invalid", result.Summary.Invalid).
		Int("failed", result.Summary.Failed).
		Msg("Bulk ingestion finished")
	return result
}

func (s *Service) ingestOne(ctx context.Context, raw json.RawMessage, dryRun bool) ItemResult {
	p := DecodePayload(raw)
	if errs := p.Validate(false); len(errs) > 0 {
		return ItemResult{Status: StatusInvalid, Fields: errs}
	}
	job := p.NewJob()

	existing, err := s.findDuplicate(ctx, job)
	if err != nil {
		s.log.Warn().Err(err).Msg("Duplicate lookup failed")
		return ItemResult{Status: StatusError, Reason: "lookup", Detail: err.Error()}
	}
	if existing != nil {
		return ItemResult{Status: StatusSkipped, ExistingID: existing.ID, ExistingSourceURL: existing.SourceURL}
	}

	if dryRun {
		return ItemResult{Status: StatusWouldInsert}
	}

	created, err := s.repo.Create(ctx, job)
	if err != nil {
		reason := "database"
		if apperrors.IsType(err, apperrors.ErrorTypeConstraint) {
			reason = "constraint"
		}
		s.log.Warn().Err(err).Str("title", job.Title).Msg("Insert failed")
		return ItemResult{Status: StatusError, Reason: reason, Detail: errorDetail(err)}
	}
	s.publishInserted(ctx, created)
	return ItemResult{Status: StatusInserted, ID: created.ID}
}

func (s *Service) findDuplicate(ctx context.Context, job NewJob) (*Job, error) {
	if job.SourceURL != nil {
		existing, err := s.repo.FindBySourceURL(ctx, *job.SourceURL)
		if err != nil || existing != nil {
			return existing, err
		}
	}
	return s.repo.FindByNaturalKey(ctx,
		strings.ToLower(job.Title),
		strings.ToLower(job.Company),
		strings.ToLower(job.Location),
		job.PostingDate,
	)
}

func (s *Service) publishInserted(ctx context.Context, job *Job) {
	event := publisher.JobEvent{
		Type:      publisher.EventJobInserted,
		JobID:     job.ID,
		Title:     job.Title,
		Company:   job.Company,
		SourceURL: job.SourceURL,
		At:        s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.ForPublisher().Warn().Err(err).Int64("job_id", job.ID).Msg("Failed to publish job event")
	}
}

// errorDetail prefers the driver message over the wrapped chain
func errorDetail(err error) string {
	if appErr, ok := apperrors.As(err); ok && appErr.Err != nil {
		return appErr.Err.Error()
	}
	return err.Error()
}

// List resolves paging defaults and returns one page. page and pageSize of
// zero mean "not given".
func (s *Service) List(ctx context.Context, filter Filter, sort Sort, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	if pageSize < 1 {
		pageSize = 1
	}

	params := ListParams{Filter: filter, Sort: sort, Page: page, PageSize: pageSize}
	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return Page{}, err
	}
	return NewPage(items, total, page, pageSize), nil
}

// Get returns one job
func (s *Service) Get(ctx context.Context, id int64) (*Job, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and inserts one payload
func (s *Service) Create(ctx context.Context, raw json.RawMessage) (*Job, error) {
	p := DecodePayload(raw)
	if errs := p.Validate(false); len(errs) > 0 {
		return nil, apperrors.NewValidation("jobs", errs)
	}
	created, err := s.repo.Create(ctx, p.NewJob())
	if err != nil {
		return nil, err
	}
	s.publishInserted(ctx, created)
	return created, nil
}

// Update applies a partial update
func (s *Service) Update(ctx context.Context, id int64, raw json.RawMessage) (*Job, error) {
	p := DecodePayload(raw)
	if errs := p.Validate(true); len(errs) > 0 {
		return nil, apperrors.NewValidation("jobs", errs)
	}
	return s.repo.Update(ctx, id, p.Patch())
}

// Delete removes a job and its tag links
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
