// Package bulk submits scraped records to the bulk ingestion endpoint
package bulk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"sjsage522/jobworker/internal/crawler"
	"sjsage522/jobworker/internal/jobs"
	"sjsage522/jobworker/logger"
	apperrors "sjsage522/jobworker/pkg/errors"
)

// Defaults for chunked submission
const (
	DefaultChunkSize = 50
	DefaultPause     = 400 * time.Millisecond
	requestTimeout   = 90 * time.Second
)

// ChunkFailure records a chunk the endpoint did not accept. Range holds the
// first and last batch index of the chunk.
type ChunkFailure struct {
	Range  [2]int `json:"range"`
	Status int    `json:"status,omitempty"`
	Body   string `json:"body,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Report aggregates every chunk of a submission. Result indices refer to the
// position in the whole batch.
type Report struct {
	Summary  jobs.Summary      `json:"summary"`
	Results  []jobs.ItemResult `json:"results"`
	Failures []ChunkFailure    `json:"failed_chunks"`
}

// Client posts records in fixed-size chunks. Pause is the quiet time between
// one chunk's response and the next chunk's request.
type Client struct {
	HTTP      *http.Client
	ChunkSize int
	Pause     time.Duration

	log *logger.Logger
}

// NewClient creates a client. A zero pause submits chunks back to back.
func NewClient(chunkSize int, pause time.Duration) *Client {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	return &Client{
		HTTP:      &http.Client{Timeout: requestTimeout},
		ChunkSize: chunkSize,
		Pause:     pause,
		log:       logger.ForWorker().WithField("stage", "bulk"),
	}
}

type bulkRequest struct {
	Items  []crawler.JobRecord `json:"items"`
	DryRun bool                `json:"dry_run,omitempty"`
}

// Submit posts records to apiBase + "/jobs/bulk". A failing chunk is recorded
// and the remaining chunks are still sent; only cancellation stops early.
func (c *Client) Submit(ctx context.Context, apiBase string, records []crawler.JobRecord) (*Report, error) {
	url := strings.TrimRight(apiBase, "/") + "/jobs/bulk"
	report := &Report{Results: []jobs.ItemResult{}, Failures: []ChunkFailure{}}

	var done time.Time
	for start := 0; start < len(records); start += c.ChunkSize {
		end := start + c.ChunkSize
		if end > len(records) {
			end = len(records)
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if start > 0 {
			if err := c.pauseAfter(ctx, done); err != nil {
				return report, err
			}
		}

		res, failure := c.postChunk(ctx, url, records[start:end])
		done = time.Now()
		if failure != nil {
			failure.Range = [2]int{start, end - 1}
			report.Failures = append(report.Failures, *failure)
			c.log.Warn().
				Int("from", start).
				Int("to", end-1).
				Int("status", failure.Status).
				Str("error", failure.Error).
				Msg("Bulk chunk failed")
			continue
		}

		report.Summary.Add(res.Summary)
		for _, r := range res.Results {
			r.Index += start
			report.Results = append(report.Results, r)
		}
	}

	c.log.Info().
		Int("records", len(records)).
		Int("inserted", report.Summary.Inserted).
		Int("skipped", report.Summary.Skipped).
		Int("invalid", report.Summary.Invalid).
		Int("failed", report.Summary.Failed).
		Int("failed_chunks", len(report.Failures)).
		Msg("Bulk submission finished")
	return report, nil
}

// pauseAfter blocks until Pause has passed since done
func (c *Client) pauseAfter(ctx context.Context, done time.Time) error {
	if c.Pause <= 0 {
		return nil
	}
	lim := rate.NewLimiter(rate.Every(c.Pause), 1)
	lim.AllowN(done, 1)
	return lim.Wait(ctx)
}

func (c *Client) postChunk(ctx context.Context, url string, chunk []crawler.JobRecord) (*jobs.BulkResult, *ChunkFailure) {
	body, err := json.Marshal(bulkRequest{Items: chunk})
	if err != nil {
		return nil, &ChunkFailure{Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ChunkFailure{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		err = apperrors.NewTransport("bulk", "chunk submission failed", err)
		return nil, &ChunkFailure{Error: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ChunkFailure{Status: resp.StatusCode, Error: err.Error()}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &ChunkFailure{Status: resp.StatusCode, Body: string(data)}
	}

	var res jobs.BulkResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, &ChunkFailure{Status: resp.StatusCode, Error: fmt.Sprintf("invalid response: %v", err)}
	}
	return &res, nil
}
