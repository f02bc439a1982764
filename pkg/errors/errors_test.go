package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	err := NewTransport("bulk", "chunk 0-49 failed", stderrors.New("connection reset"))
	assert.Equal(t, "[transport] bulk: chunk 0-49 failed - connection reset", err.Error())
	assert.True(t, err.IsRetryable())

	rl := NewRateLimit("scraper", 10*time.Minute)
	assert.Equal(t, "[rate_limit] scraper: rate limited for 10m0s", rl.Error())
	assert.False(t, rl.IsRetryable())
}

func TestValidationFieldsAreSorted(t *testing.T) {
	err := NewValidation("ingest", map[string]string{
		"title":   "title is required.",
		"company": "company is required.",
	})
	assert.Equal(t, "[validation] ingest: invalid payload (company: company is required.; title: title is required.)", err.Error())
}

func TestIsTypeThroughWrapping(t *testing.T) {
	base := NewConstraint("store", "duplicate source_url", stderrors.New("23505"))
	wrapped := fmt.Errorf("insert job: %w", base)

	assert.True(t, IsType(wrapped, ErrorTypeConstraint))
	assert.False(t, IsType(wrapped, ErrorTypeValidation))
	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeConstraint))

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "store", appErr.Component)
	assert.ErrorContains(t, stderrors.Unwrap(appErr), "23505")
}
