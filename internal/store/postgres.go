// Package store persists jobs and tags in PostgreSQL
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sjsage522/jobworker/internal/jobs"
	apperrors "sjsage522/jobworker/pkg/errors"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id           BIGSERIAL PRIMARY KEY,
	title        VARCHAR(300) NOT NULL,
	company      VARCHAR(300) NOT NULL,
	location     VARCHAR(300) NOT NULL,
	description  TEXT,
	posting_date DATE,
	posted_at    TIMESTAMPTZ,
	job_type     VARCHAR(50),
	salary_text  VARCHAR(200),
	source_url   VARCHAR(1000) UNIQUE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS tags (
	id   BIGSERIAL PRIMARY KEY,
	name VARCHAR(100) NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS job_tags (
	job_id BIGINT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (job_id, tag_id)
);
CREATE INDEX IF NOT EXISTS jobs_natural_key_idx ON jobs (lower(title), lower(company), lower(location));
CREATE INDEX IF NOT EXISTS jobs_posting_date_idx ON jobs (posting_date DESC NULLS LAST, created_at DESC);
`

const jobColumns = `j.id, j.title, j.company, j.location, j.description, j.posting_date,
	j.posted_at, j.job_type, j.salary_text, j.source_url, j.created_at, j.updated_at,
	ARRAY(SELECT t.name FROM job_tags jt JOIN tags t ON t.id = jt.tag_id
	      WHERE jt.job_id = j.id ORDER BY t.name) AS tags`

// Connect opens and verifies a connection pool
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return pool, nil
}

// Store implements jobs.Repository on PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

var _ jobs.Repository = (*Store)(nil)

// New creates a store over an open pool
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the tables when they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*jobs.Job, error) {
	var j jobs.Job
	err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.Description, &j.PostingDate,
		&j.PostedAt, &j.JobType, &j.SalaryText, &j.SourceURL, &j.CreatedAt, &j.UpdatedAt, &j.Tags)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// queryOne returns (nil, nil) when no row matches
func (s *Store) queryOne(ctx context.Context, q pgxQuerier, sql string, args ...any) (*jobs.Job, error) {
	j, err := scanJob(q.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// FindBySourceURL implements jobs.Repository
func (s *Store) FindBySourceURL(ctx context.Context, sourceURL string) (*jobs.Job, error) {
	j, err := s.queryOne(ctx, s.pool, `SELECT `+jobColumns+` FROM jobs j WHERE j.source_url = $1`, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to look up source_url: %w", err)
	}
	return j, nil
}

// FindByNaturalKey implements jobs.Repository
func (s *Store) FindByNaturalKey(ctx context.Context, title, company, location string, postingDate *time.Time) (*jobs.Job, error) {
	j, err := s.queryOne(ctx, s.pool, `SELECT `+jobColumns+` FROM jobs j
		WHERE lower(j.title) = $1 AND lower(j.company) = $2 AND lower(j.location) = $3
		  AND j.posting_date IS NOT DISTINCT FROM $4::date
		ORDER BY j.id LIMIT 1`,
		title, company, location, postingDate)
	if err != nil {
		return nil, fmt.Errorf("failed to look up natural key: %w", err)
	}
	return j, nil
}

// Create inserts a job and attaches its tags in one transaction
func (s *Store) Create(ctx context.Context, nj jobs.NewJob) (*jobs.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO jobs (title, company, location, description, posting_date, posted_at,
		                  job_type, salary_text, source_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		nj.Title, nj.Company, nj.Location, nj.Description, nj.PostingDate, nj.PostedAt,
		nj.JobType, nj.SalaryText, nj.SourceURL,
	).Scan(&id)
	if err != nil {
		return nil, mapError("insert job", err)
	}
	if err := setTags(ctx, tx, id, nj.Tags); err != nil {
		return nil, err
	}

	j, err := s.queryOne(ctx, tx, `SELECT `+jobColumns+` FROM jobs j WHERE j.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read back job: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapError("commit job", err)
	}
	return j, nil
}

// setTags replaces the tag links of a job, creating missing tags
func setTags(ctx context.Context, tx pgx.Tx, jobID int64, tags []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM job_tags WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	if len(tags) == 0 {
		return nil
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO tags (name) SELECT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`, tags); err != nil {
		return mapError("insert tags", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO job_tags (job_id, tag_id)
		SELECT $1, id FROM tags WHERE name = ANY($2::text[])
		ON CONFLICT DO NOTHING`, jobID, tags); err != nil {
		return mapError("attach tags", err)
	}
	return nil
}

// Get implements jobs.Repository
func (s *Store) Get(ctx context.Context, id int64) (*jobs.Job, error) {
	j, err := s.queryOne(ctx, s.pool, `SELECT `+jobColumns+` FROM jobs j WHERE j.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if j == nil {
		return nil, apperrors.NewNotFound("store", "Job not found")
	}
	return j, nil
}

// Update implements jobs.Repository
func (s *Store) Update(ctx context.Context, id int64, patch jobs.Patch) (*jobs.Job, error) {
	sets, args := buildUpdate(patch)
	args = append(args, id)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE jobs SET `+strings.Join(sets, ", ")+` WHERE id = $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, mapError("update job", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NewNotFound("store", "Job not found")
	}
	if patch.TagsSet {
		if err := setTags(ctx, tx, id, patch.Tags); err != nil {
			return nil, err
		}
	}

	j, err := s.queryOne(ctx, tx, `SELECT `+jobColumns+` FROM jobs j WHERE j.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read back job: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapError("commit job", err)
	}
	return j, nil
}

// buildUpdate renders the SET list of a patch. updated_at is always bumped.
func buildUpdate(p jobs.Patch) ([]string, []any) {
	var sets []string
	var args []any
	add := func(column, expr string, v any) {
		args = append(args, v)
		sets = append(sets, column+" = "+strings.ReplaceAll(expr, "?", "$"+strconv.Itoa(len(args))))
	}

	required := []struct {
		column string
		value  *string
	}{{"title", p.Title}, {"company", p.Company}, {"location", p.Location}}
	for _, f := range required {
		if f.value != nil {
			add(f.column, "?", *f.value)
		}
	}
	optional := []struct {
		column string
		value  *string
	}{{"description", p.Description}, {"job_type", p.JobType}, {"salary_text", p.SalaryText}, {"source_url", p.SourceURL}}
	for _, f := range optional {
		if f.value != nil {
			add(f.column, "NULLIF(?, '')", *f.value)
		}
	}
	if p.PostingDateSet {
		add("posting_date", "?::date", p.PostingDate)
	}
	if p.PostedAtSet {
		add("posted_at", "?", p.PostedAt)
	}
	sets = append(sets, "updated_at = now()")
	return sets, args
}

// Delete implements jobs.Repository
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFound("store", "Job not found")
	}
	return nil
}

// List implements jobs.Repository
func (s *Store) List(ctx context.Context, params jobs.ListParams) ([]jobs.Job, int, error) {
	where, args := buildWhere(params.Filter)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM jobs j`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	args = append(args, params.PageSize, params.Offset())
	sql := `SELECT ` + jobColumns + ` FROM jobs j` + where +
		` ORDER BY ` + orderBy(params.Sort) +
		` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	items := make([]jobs.Job, 0, params.PageSize)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan job: %w", err)
		}
		items = append(items, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	return items, total, nil
}

// buildWhere renders the filter as a WHERE clause with positional arguments
func buildWhere(f jobs.Filter) (string, []any) {
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		p := next("%" + strings.ToLower(q) + "%")
		conds = append(conds, "(lower(j.title) LIKE "+p+" OR lower(j.company) LIKE "+p+")")
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		conds = append(conds, "lower(j.location) LIKE "+next("%"+strings.ToLower(loc)+"%"))
	}
	if jt := strings.TrimSpace(f.JobType); jt != "" {
		conds = append(conds, "lower(j.job_type) = "+next(strings.ToLower(jt)))
	}
	for _, tag := range f.Tags {
		conds = append(conds, `EXISTS (SELECT 1 FROM job_tags jt JOIN tags t ON t.id = jt.tag_id
			WHERE jt.job_id = j.id AND lower(t.name) = `+next(tag)+`)`)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderBy(sort jobs.Sort) string {
	switch sort {
	case jobs.SortPostingDateAsc:
		return "j.posting_date ASC NULLS FIRST, j.created_at ASC, j.id ASC"
	case jobs.SortTitleAsc:
		return "j.title ASC, j.created_at DESC, j.id DESC"
	case jobs.SortTitleDesc:
		return "j.title DESC, j.created_at DESC, j.id DESC"
	default:
		return "j.posting_date DESC NULLS LAST, j.created_at DESC, j.id DESC"
	}
}

// mapError classifies unique violations as constraint errors
func mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperrors.NewConstraint("store", op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
