// Package api exposes the job catalog and scrape control over HTTP.
//
// Routes:
//
//	GET    /healthz              → liveness
//	GET    /api/jobs             → filtered, sorted, paginated listing
//	POST   /api/jobs             → create one job
//	POST   /api/jobs/bulk        → bulk ingestion with duplicate detection
//	GET    /api/jobs/{id}        → one job
//	PUT    /api/jobs/{id}        → partial update (PATCH is the same)
//	DELETE /api/jobs/{id}        → remove a job
//	POST   /api/scrape/start     → start a background scrape run
//	GET    /api/scrape/status    → progress of the current or last run
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/cors"

	"sjsage522/jobworker/internal/jobs"
	"sjsage522/jobworker/logger"
	"sjsage522/jobworker/services/worker"
)

// JobService is the catalog behind the /api/jobs routes
type JobService interface {
	Ingest(ctx context.Context, items []json.RawMessage, dryRun bool) *jobs.BulkResult
	List(ctx context.Context, filter jobs.Filter, sort jobs.Sort, page, pageSize int) (jobs.Page, error)
	Get(ctx context.Context, id int64) (*jobs.Job, error)
	Create(ctx context.Context, raw json.RawMessage) (*jobs.Job, error)
	Update(ctx context.Context, id int64, raw json.RawMessage) (*jobs.Job, error)
	Delete(ctx context.Context, id int64) error
}

// ScrapeRunner starts scrape runs and reports their progress
type ScrapeRunner interface {
	Start(opts worker.RunOptions) (worker.Status, error)
	Status() worker.Status
}

// Server holds shared dependencies
type Server struct {
	jobs        JobService
	runner      ScrapeRunner
	corsOrigins []string
	log         *logger.Logger
}

// NewServer returns a configured Server
func NewServer(jobs JobService, runner ScrapeRunner, corsOrigins []string) *Server {
	return &Server{
		jobs:        jobs,
		runner:      runner,
		corsOrigins: corsOrigins,
		log:         logger.ForAPI(),
	}
}

// Handler mounts every route and wraps them with logging and CORS for the
// configured browser origins
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.health)

	mux.HandleFunc("GET /api/jobs", s.listJobs)
	mux.HandleFunc("POST /api/jobs", s.createJob)
	mux.HandleFunc("POST /api/jobs/bulk", s.bulkInsert)
	mux.HandleFunc("GET /api/jobs/{id}", s.getJob)
	mux.HandleFunc("PUT /api/jobs/{id}", s.updateJob)
	mux.HandleFunc("PATCH /api/jobs/{id}", s.updateJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", s.deleteJob)

	mux.HandleFunc("POST /api/scrape/start", s.startScrape)
	mux.HandleFunc("GET /api/scrape/status", s.scrapeStatus)

	c := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})
	return s.logRequests(c.Handler(mux))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				s.log.Error().Interface("panic", p).Str("path", r.URL.Path).Msg("Handler panicked")
				writeError(rec, http.StatusInternalServerError, "Internal server error")
			}
			s.log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("elapsed", time.Since(start)).
				Msg("Request handled")
		}()
		next.ServeHTTP(rec, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.LogError("api", err, "failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message interface{}) {
	writeJSON(w, status, map[string]interface{}{"error": message})
}
