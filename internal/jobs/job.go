// Package jobs holds the job catalog domain: payload normalization, bulk
// ingestion with duplicate detection, and filtered, paginated queries.
package jobs

import (
	"encoding/json"
	"time"
)

// Job is a persisted posting
type Job struct {
	ID          int64
	Title       string
	Company     string
	Location    string
	Description *string
	PostingDate *time.Time // calendar date, UTC midnight
	PostedAt    *time.Time
	JobType     *string
	SalaryText  *string
	SourceURL   *string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type jobWire struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Description *string  `json:"description"`
	PostingDate *string  `json:"posting_date"`
	PostedAt    *string  `json:"posted_at"`
	JobType     *string  `json:"job_type"`
	SalaryText  *string  `json:"salary_text"`
	SourceURL   *string  `json:"source_url"`
	Tags        []string `json:"tags"`
	CreatedAt   *string  `json:"created_at"`
	UpdatedAt   *string  `json:"updated_at"`
}

// MarshalJSON renders dates as ISO strings and missing values as null
func (j Job) MarshalJSON() ([]byte, error) {
	w := jobWire{
		ID:          j.ID,
		Title:       j.Title,
		Company:     j.Company,
		Location:    j.Location,
		Description: j.Description,
		PostingDate: formatTime(j.PostingDate, time.DateOnly),
		PostedAt:    formatTime(j.PostedAt, time.RFC3339),
		JobType:     j.JobType,
		SalaryText:  j.SalaryText,
		SourceURL:   j.SourceURL,
		Tags:        j.Tags,
		CreatedAt:   formatTime(&j.CreatedAt, time.RFC3339Nano),
		UpdatedAt:   formatTime(&j.UpdatedAt, time.RFC3339Nano),
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}
	return json.Marshal(w)
}

func formatTime(t *time.Time, layout string) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.Format(layout)
	return &s
}

// NewJob is a validated, normalized record ready to insert
type NewJob struct {
	Title       string
	Company     string
	Location    string
	Description *string
	PostingDate *time.Time
	PostedAt    *time.Time
	JobType     *string
	SalaryText  *string
	SourceURL   *string
	Tags        []string // normalized
}

// Patch is a partial update. Nil string fields are left untouched; an empty
// optional string clears the column. The *Set flags distinguish "clear" from
// "leave alone" for the remaining fields.
type Patch struct {
	Title       *string
	Company     *string
	Location    *string
	Description *string
	JobType     *string
	SalaryText  *string
	SourceURL   *string

	PostingDateSet bool
	PostingDate    *time.Time
	PostedAtSet    bool
	PostedAt       *time.Time
	TagsSet        bool
	Tags           []string
}
