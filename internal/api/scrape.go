package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "sjsage522/jobworker/pkg/errors"
	"sjsage522/jobworker/services/worker"
)

// maxStartLimit caps the record count a single run may ask for
const maxStartLimit = 10000

type startRequest struct {
	Limit    json.Number `json:"limit"`
	Headless interface{} `json:"headless"`
	APIBase  string      `json:"api_base"`
	BaseURL  string      `json:"base_url"`
}

func (s *Server) startScrape(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad request")
		return
	}

	var req startRequest
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &req) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "Bad request"})
		return
	}

	opts := worker.RunOptions{
		Limit:    worker.DefaultLimit,
		Headless: truthy(req.Headless, true),
		APIBase:  req.APIBase,
		BaseURL:  req.BaseURL,
	}
	if req.Limit != "" {
		n, err := req.Limit.Float64()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "limit must be a number"})
			return
		}
		if n > maxStartLimit {
			n = maxStartLimit
		} else if n < 1 {
			n = 1
		}
		opts.Limit = int(n)
	}
	if opts.Limit < 1 {
		opts.Limit = 1
	}
	if opts.APIBase == "" {
		opts.APIBase = ownAPIBase(r)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = worker.DefaultBaseURL
	}

	status, err := s.runner.Start(opts)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			writeJSON(w, http.StatusConflict, map[string]interface{}{"ok": false, "error": "already-running", "status": status})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "status": status})
}

func (s *Server) scrapeStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "status": s.runner.Status()})
}

// ownAPIBase is the /api root of this server as the caller reached it
func ownAPIBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host + "/api"
}
