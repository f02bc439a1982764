package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"sjsage522/jobworker/internal/jobs"
	"sjsage522/jobworker/logger"
	apperrors "sjsage522/jobworker/pkg/errors"
)

const maxBodyBytes = 10 << 20

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := jobs.Filter{
		Query:    q.Get("q"),
		Location: strings.TrimSpace(q.Get("location")),
		JobType:  strings.TrimSpace(q.Get("job_type")),
		Tags:     jobs.ParseTagArgs(q["tag"]),
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := s.jobs.List(r.Context(), filter, jobs.ParseSort(q.Get("sort")), page, pageSize)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad request")
		return
	}
	job, err := s.jobs.Create(r.Context(), body)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) updateJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad request")
		return
	}
	job, err := s.jobs.Update(r.Context(), id, body)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	if err := s.jobs.Delete(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkRequest struct {
	Items  json.RawMessage `json:"items"`
	DryRun interface{}     `json:"dry_run"`
}

func (s *Server) bulkInsert(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad request")
		return
	}

	var req bulkRequest
	var items []json.RawMessage
	// a body that is not an object or an items value that is not an array
	// both end up as "no items"
	if json.Unmarshal(body, &req) != nil || json.Unmarshal(req.Items, &items) != nil || len(items) == 0 {
		writeError(w, http.StatusBadRequest, "items must be a non-empty array")
		return
	}

	result := s.jobs.Ingest(r.Context(), items, truthy(req.DryRun, false))
	s.log.Info().
		Int("items", len(items)).
		Int("inserted", result.Summary.Inserted).
		Int("skipped", result.Summary.Skipped).
		Int("invalid", result.Summary.Invalid).
		Int("failed", result.Summary.Failed).
		Msg("Bulk ingestion handled")
	writeJSON(w, http.StatusOK, result)
}

// fail maps a service error onto a response
func (s *Server) fail(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		logger.LogError("api", err, "unclassified error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	switch appErr.Type {
	case apperrors.ErrorTypeValidation:
		writeError(w, http.StatusBadRequest, appErr.Fields)
	case apperrors.ErrorTypeNotFound:
		writeError(w, http.StatusNotFound, "Job not found")
	case apperrors.ErrorTypeConstraint:
		writeError(w, http.StatusConflict, "Duplicate source_url")
	case apperrors.ErrorTypeConflict:
		writeError(w, http.StatusConflict, appErr.Message)
	default:
		logger.LogError("api", err, "request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// jobID parses the {id} path segment. Anything but a positive integer is
// answered like a missing job.
func jobID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusNotFound, "Job not found")
		return 0, false
	}
	return id, true
}

func readBody(r *http.Request) (json.RawMessage, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxBodyBytes {
		return nil, errors.New("request body too large")
	}
	return data, nil
}

// truthy interprets a loosely typed JSON flag
func truthy(v interface{}, def bool) bool {
	switch x := v.(type) {
	case nil:
		return def
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []interface{}:
		return len(x) > 0
	case map[string]interface{}:
		return len(x) > 0
	}
	return def
}
