package bulk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/jobworker/internal/crawler"
	"sjsage522/jobworker/internal/jobs"
)

func records(n int) []crawler.JobRecord {
	out := make([]crawler.JobRecord, n)
	for i := range out {
		out[i] = crawler.JobRecord{
			Title:     fmt.Sprintf("Actuary %d", i),
			Company:   "Acme",
			Location:  "Remote",
			JobType:   crawler.DefaultJobType,
			SourceURL: fmt.Sprintf("https://www.actuarylist.com/actuarial-jobs/%d-acme", i),
		}
	}
	return out
}

// bulkServer answers every chunk with all items inserted, except the chunk
// numbers listed in failing which get a 500
func bulkServer(t *testing.T, failing map[int]bool) (*httptest.Server, *[]int) {
	var mu sync.Mutex
	var sizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/jobs/bulk", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body struct {
			Items []map[string]interface{} `json:"items"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		mu.Lock()
		sizes = append(sizes, len(body.Items))
		chunk := len(sizes) - 1
		mu.Unlock()

		if failing[chunk] {
			http.Error(w, "database unavailable", http.StatusInternalServerError)
			return
		}
		res := jobs.BulkResult{}
		for i := range body.Items {
			res.Results = append(res.Results, jobs.ItemResult{Index: i, Status: jobs.StatusInserted, ID: int64(chunk*1000 + i)})
		}
		res.Summary.Inserted = len(body.Items)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(res))
	}))
	return server, &sizes
}

func TestSubmitChunksAndSurvivesFailedChunk(t *testing.T) {
	server, sizes := bulkServer(t, map[int]bool{1: true})
	defer server.Close()

	client := NewClient(50, 0)
	report, err := client.Submit(context.Background(), server.URL+"/api/", records(120))
	require.NoError(t, err)

	assert.Equal(t, []int{50, 50, 20}, *sizes)
	assert.Equal(t, jobs.Summary{Inserted: 70}, report.Summary)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, [2]int{50, 99}, report.Failures[0].Range)
	assert.Equal(t, http.StatusInternalServerError, report.Failures[0].Status)
	assert.Contains(t, report.Failures[0].Body, "database unavailable")

	require.Len(t, report.Results, 70)
	assert.Equal(t, 0, report.Results[0].Index)
	assert.Equal(t, 100, report.Results[50].Index, "indices refer to the whole batch")
	assert.Equal(t, 119, report.Results[69].Index)
}

func TestSubmitRecordsTransportErrors(t *testing.T) {
	server, _ := bulkServer(t, nil)
	url := server.URL
	server.Close()

	client := NewClient(50, 0)
	report, err := client.Submit(context.Background(), url+"/api", records(60))
	require.NoError(t, err)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, [2]int{0, 49}, report.Failures[0].Range)
	assert.Equal(t, [2]int{50, 59}, report.Failures[1].Range)
	assert.Contains(t, report.Failures[0].Error, "[transport]")
	assert.Equal(t, jobs.Summary{}, report.Summary)
}

func TestSubmitPausesBetweenChunks(t *testing.T) {
	server, sizes := bulkServer(t, nil)
	defer server.Close()

	client := NewClient(10, 50*time.Millisecond)
	start := time.Now()
	_, err := client.Submit(context.Background(), server.URL+"/api", records(30))
	require.NoError(t, err)

	assert.Equal(t, []int{10, 10, 10}, *sizes)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestSubmitPausesAfterSlowChunk(t *testing.T) {
	var mu sync.Mutex
	var arrivals []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		mu.Unlock()
		time.Sleep(80 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(jobs.BulkResult{}))
	}))
	defer server.Close()

	client := NewClient(10, 50*time.Millisecond)
	report, err := client.Submit(context.Background(), server.URL+"/api", records(20))
	require.NoError(t, err)
	assert.Empty(t, report.Failures)

	require.Len(t, arrivals, 2)
	assert.GreaterOrEqual(t, arrivals[1].Sub(arrivals[0]), 125*time.Millisecond)
}

func TestSubmitNothing(t *testing.T) {
	client := NewClient(50, time.Second)
	report, err := client.Submit(context.Background(), "http://127.0.0.1:1/api", nil)
	require.NoError(t, err)
	assert.Equal(t, jobs.Summary{}, report.Summary)
	assert.Empty(t, report.Failures)
}

func TestSubmitStopsOnCancel(t *testing.T) {
	server, sizes := bulkServer(t, nil)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := NewClient(10, time.Second)
	_, err := client.Submit(ctx, server.URL+"/api", records(30))
	assert.Error(t, err)
	assert.Empty(t, *sizes)
}
