package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/jobworker/internal/jobs"
	apperrors "sjsage522/jobworker/pkg/errors"
	"sjsage522/jobworker/services/worker"
)

// fakeJobs records calls and returns canned answers
type fakeJobs struct {
	jobs map[int64]*jobs.Job

	listFilter   jobs.Filter
	listSort     jobs.Sort
	listPage     int
	listPageSize int

	ingested []json.RawMessage
	dryRun   bool
	created  json.RawMessage
	createFn func(json.RawMessage) (*jobs.Job, error)
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[int64]*jobs.Job{
		7: {ID: 7, Title: "Pricing Actuary", Company: "Acme", Location: "Remote"},
	}}
}

func (f *fakeJobs) Ingest(ctx context.Context, items []json.RawMessage, dryRun bool) *jobs.BulkResult {
	f.ingested = items
	f.dryRun = dryRun
	res := &jobs.BulkResult{Summary: jobs.Summary{Inserted: len(items)}}
	for i := range items {
		res.Results = append(res.Results, jobs.ItemResult{Index: i, Status: jobs.StatusInserted, ID: int64(i + 1)})
	}
	return res
}

func (f *fakeJobs) List(ctx context.Context, filter jobs.Filter, sort jobs.Sort, page, pageSize int) (jobs.Page, error) {
	f.listFilter, f.listSort, f.listPage, f.listPageSize = filter, sort, page, pageSize
	return jobs.NewPage([]jobs.Job{*f.jobs[7]}, 1, 1, 10), nil
}

func (f *fakeJobs) Get(ctx context.Context, id int64) (*jobs.Job, error) {
	if j, ok := f.jobs[id]; ok {
		return j, nil
	}
	return nil, apperrors.NewNotFound("store", "Job not found")
}

func (f *fakeJobs) Create(ctx context.Context, raw json.RawMessage) (*jobs.Job, error) {
	f.created = raw
	return f.createFn(raw)
}

func (f *fakeJobs) Update(ctx context.Context, id int64, raw json.RawMessage) (*jobs.Job, error) {
	j, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *j
	updated.Title = "Updated"
	return &updated, nil
}

func (f *fakeJobs) Delete(ctx context.Context, id int64) error {
	if _, err := f.Get(ctx, id); err != nil {
		return err
	}
	delete(f.jobs, id)
	return nil
}

// fakeRunner accepts one start and then reports a conflict
type fakeRunner struct {
	started []worker.RunOptions
	status  worker.Status
}

func (f *fakeRunner) Start(opts worker.RunOptions) (worker.Status, error) {
	if f.status.Running {
		return f.status, apperrors.NewConflict("runner", "already-running")
	}
	f.started = append(f.started, opts)
	f.status = worker.Status{Running: true, Limit: opts.Limit, RunID: "run-1"}
	return f.status, nil
}

func (f *fakeRunner) Status() worker.Status {
	return f.status
}

func newTestServer() (*Server, *fakeJobs, *fakeRunner) {
	fj := newFakeJobs()
	fr := &fakeRunner{}
	return NewServer(fj, fr, []string{"http://localhost:5173"}), fj, fr
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer()
	rec := do(t, s.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListJobsParsesQuery(t *testing.T) {
	s, fj, _ := newTestServer()
	rec := do(t, s.Handler(), http.MethodGet, "/api/jobs?q=pricing&location=+Boston+&job_type=Full-Time&tag=Life,P%26C&tag=life&sort=title_desc&page=2&page_size=abc", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, jobs.Filter{Query: "pricing", Location: "Boston", JobType: "Full-Time", Tags: []string{"life", "p&c"}}, fj.listFilter)
	assert.Equal(t, jobs.SortTitleDesc, fj.listSort)
	assert.Equal(t, 2, fj.listPage)
	assert.Equal(t, 0, fj.listPageSize, "an unparseable page size falls back to the default")

	body := decode(t, rec)
	assert.Len(t, body["items"], 1)
	assert.Contains(t, body, "page_meta")
}

func TestGetJob(t *testing.T) {
	s, _, _ := newTestServer()
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/jobs/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pricing Actuary", decode(t, rec)["title"])

	rec = do(t, h, http.MethodGet, "/api/jobs/8", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Job not found"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/jobs/abc", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateJobStatuses(t *testing.T) {
	s, fj, _ := newTestServer()
	h := s.Handler()

	fj.createFn = func(json.RawMessage) (*jobs.Job, error) {
		return &jobs.Job{ID: 9, Title: "Analyst", Company: "Acme", Location: "Remote"}, nil
	}
	rec := do(t, h, http.MethodPost, "/api/jobs", `{"title":"Analyst"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"title":"Analyst"}`, string(fj.created))

	fj.createFn = func(json.RawMessage) (*jobs.Job, error) {
		return nil, apperrors.NewValidation("jobs", map[string]string{"title": "title is required."})
	}
	rec = do(t, h, http.MethodPost, "/api/jobs", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{"title":"title is required."}}`, rec.Body.String())

	fj.createFn = func(json.RawMessage) (*jobs.Job, error) {
		return nil, apperrors.NewConstraint("store", "duplicate key", nil)
	}
	rec = do(t, h, http.MethodPost, "/api/jobs", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Duplicate source_url"}`, rec.Body.String())
}

func TestUpdateAndDeleteJob(t *testing.T) {
	s, _, _ := newTestServer()
	h := s.Handler()

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		rec := do(t, h, method, "/api/jobs/7", `{"title":"Updated"}`)
		require.Equal(t, http.StatusOK, rec.Code, method)
		assert.Equal(t, "Updated", decode(t, rec)["title"])
	}

	rec := do(t, h, http.MethodPatch, "/api/jobs/99", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/jobs/7", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/api/jobs/7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBulkInsert(t *testing.T) {
	s, fj, _ := newTestServer()
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/jobs/bulk", `{"items":[{"title":"A"},{"title":"B"}],"dry_run":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, fj.ingested, 2)
	assert.True(t, fj.dryRun)

	var res jobs.BulkResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, jobs.Summary{Inserted: 2}, res.Summary)

	for _, body := range []string{``, `[]`, `{"items":[]}`, `{"items":{"title":"A"}}`, `{"items":"A"}`, `not json`} {
		rec := do(t, h, http.MethodPost, "/api/jobs/bulk", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"items must be a non-empty array"}`, rec.Body.String(), body)
	}
}

func TestStartScrapeDefaultsAndConflict(t *testing.T) {
	s, _, fr := newTestServer()
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/scrape/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fr.started, 1)
	assert.Equal(t, worker.RunOptions{
		Limit:    50,
		Headless: true,
		APIBase:  "http://example.com/api",
		BaseURL:  worker.DefaultBaseURL,
	}, fr.started[0])
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])

	rec = do(t, h, http.MethodPost, "/api/scrape/start", `{"limit":5}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "already-running", body["error"])
	assert.Equal(t, float64(50), body["status"].(map[string]interface{})["limit"])
	assert.Len(t, fr.started, 1)
}

func TestStartScrapeOptions(t *testing.T) {
	s, _, fr := newTestServer()
	rec := do(t, s.Handler(), http.MethodPost, "/api/scrape/start",
		`{"limit":-3,"headless":false,"api_base":"http://api:5000/api","base_url":"https://www.actuarylist.com/"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, worker.RunOptions{
		Limit:    1,
		Headless: false,
		APIBase:  "http://api:5000/api",
		BaseURL:  "https://www.actuarylist.com/",
	}, fr.started[0])

	rec = do(t, s.Handler(), http.MethodPost, "/api/scrape/start", `{"limit":"many"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartScrapeCapsHugeLimit(t *testing.T) {
	s, _, fr := newTestServer()
	rec := do(t, s.Handler(), http.MethodPost, "/api/scrape/start", `{"limit":1e30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fr.started, 1)
	assert.Equal(t, maxStartLimit, fr.started[0].Limit)
}

func TestScrapeStatus(t *testing.T) {
	s, _, fr := newTestServer()
	fr.status = worker.Status{Running: true, Fetched: 3, Limit: 10}

	rec := do(t, s.Handler(), http.MethodGet, "/api/scrape/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"status":{"running":true,"fetched":3,"limit":10,"error":null,
		"started_at":null,"finished_at":null,"summary":null}}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	s, _, _ := newTestServer()
	h := s.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/jobs", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
