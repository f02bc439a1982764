package jobs

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const postingDateMessage = "posting_date must be ISO date, e.g., 2025-10-04"

var requiredFields = []string{"title", "company", "location"}

// TagList accepts tags either as a JSON array of strings or as one
// comma-separated string
type TagList []string

// UnmarshalJSON implements json.Unmarshaler
func (t *TagList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = splitTags(s)
		return nil
	}
	var items []interface{}
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(TagList, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	*t = out
	return nil
}

func splitTags(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeTags trims, lowercases and deduplicates tag names in first-seen order
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := strings.ToLower(strings.TrimSpace(t))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Payload is one decoded record payload. String fields are nil when the key
// is absent or null.
type Payload struct {
	Title       *string
	Company     *string
	Location    *string
	Description *string
	PostingDate *string
	PostedAt    *string
	JobType     *string
	SalaryText  *string
	SourceURL   *string
	Tags        TagList

	present map[string]bool
	errors  map[string]string
}

// DecodePayload reads a payload object. Anything that is not a JSON object
// decodes as an empty payload, which then fails validation.
func DecodePayload(raw json.RawMessage) *Payload {
	p := &Payload{present: map[string]bool{}, errors: map[string]string{}}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return p
	}
	for k := range fields {
		p.present[k] = true
	}

	strField := func(key string, dst **string) {
		v, ok := fields[key]
		if !ok {
			return
		}
		var s *string
		if err := json.Unmarshal(v, &s); err != nil {
			p.errors[key] = key + " must be a string."
			return
		}
		*dst = s
	}
	strField("title", &p.Title)
	strField("company", &p.Company)
	strField("location", &p.Location)
	strField("description", &p.Description)
	strField("job_type", &p.JobType)
	strField("salary_text", &p.SalaryText)
	strField("source_url", &p.SourceURL)
	strField("posted_at", &p.PostedAt)

	if v, ok := fields["posting_date"]; ok {
		if err := json.Unmarshal(v, &p.PostingDate); err != nil {
			p.errors["posting_date"] = postingDateMessage
		}
	}
	if v, ok := fields["tags"]; ok {
		if err := json.Unmarshal(v, &p.Tags); err != nil {
			p.errors["tags"] = "tags must be an array or a comma-separated string."
		}
	}
	return p
}

// Has reports whether key was present in the payload, even as null
func (p *Payload) Has(key string) bool {
	return p.present[key]
}

// Validate returns per-field reasons, empty when the payload is acceptable.
// Required fields are only enforced for new records; on update a present
// required field may not be blanked.
func (p *Payload) Validate(isUpdate bool) map[string]string {
	errs := make(map[string]string, len(p.errors))
	for k, v := range p.errors {
		errs[k] = v
	}

	values := map[string]*string{"title": p.Title, "company": p.Company, "location": p.Location}
	for _, field := range requiredFields {
		if _, bad := errs[field]; bad {
			continue
		}
		v := values[field]
		if isUpdate && v == nil {
			continue
		}
		if v == nil || strings.TrimSpace(*v) == "" {
			errs[field] = field + " is required."
		}
	}

	if _, bad := errs["posting_date"]; !bad && p.PostingDate != nil && *p.PostingDate != "" {
		if _, err := ParseISODate(*p.PostingDate); err != nil {
			errs["posting_date"] = postingDateMessage
		}
	}
	return errs
}

// NewJob converts a validated payload into its canonical insert form
func (p *Payload) NewJob() NewJob {
	j := NewJob{
		Title:       trimmed(p.Title),
		Company:     trimmed(p.Company),
		Location:    trimmed(p.Location),
		Description: optionalString(p.Description),
		JobType:     optionalString(p.JobType),
		SalaryText:  optionalString(p.SalaryText),
		SourceURL:   optionalString(p.SourceURL),
		PostedAt:    parsePostedAt(p.PostedAt),
		Tags:        NormalizeTags(p.Tags),
	}
	if p.PostingDate != nil && *p.PostingDate != "" {
		if d, err := ParseISODate(*p.PostingDate); err == nil {
			j.PostingDate = &d
		}
	}
	return j
}

// Patch converts a validated payload into a partial update
func (p *Payload) Patch() Patch {
	patch := Patch{
		Title:       trimmedPtr(p.Title),
		Company:     trimmedPtr(p.Company),
		Location:    trimmedPtr(p.Location),
		Description: trimmedPtr(p.Description),
		JobType:     trimmedPtr(p.JobType),
		SalaryText:  trimmedPtr(p.SalaryText),
		SourceURL:   trimmedPtr(p.SourceURL),
	}
	if p.Has("posting_date") {
		patch.PostingDateSet = true
		if p.PostingDate != nil && *p.PostingDate != "" {
			if d, err := ParseISODate(*p.PostingDate); err == nil {
				patch.PostingDate = &d
			}
		}
	}
	if p.Has("posted_at") {
		patch.PostedAtSet = true
		patch.PostedAt = parsePostedAt(p.PostedAt)
	}
	if p.Has("tags") {
		patch.TagsSet = true
		patch.Tags = NormalizeTags(p.Tags)
	}
	return patch
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func optionalString(s *string) *string {
	if t := trimmed(s); t != "" {
		return &t
	}
	return nil
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"20060102",
}

func parseISO(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range dateTimeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// ParseISODate accepts an ISO date or datetime and keeps its calendar date
func ParseISODate(s string) (time.Time, error) {
	t, err := parseISO(s)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// parsePostedAt is lenient: unparseable timestamps are dropped, and values
// without an offset are taken as UTC
func parsePostedAt(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := parseISO(*s)
	if err != nil {
		return nil
	}
	return &t
}
