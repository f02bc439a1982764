package crawler

import (
	"encoding/json"
	"regexp"
	"time"
)

// Field caps applied during extraction
const (
	MaxLocationLength    = 300
	MaxDescriptionLength = 1200
	MaxTags              = 12
	MaxTagLength         = 30

	DefaultJobType  = "Full-time"
	UnknownFallback = "Unknown"
)

// DetailHrefPattern identifies detail-page links on the listing site
var DetailHrefPattern = regexp.MustCompile(`(?i)/actuarial-jobs/\d+[-/]`)

// JobRecord is one normalized posting extracted from a detail page
type JobRecord struct {
	Title       string
	Company     string
	Location    string
	Description string // empty when absent
	PostingDate *time.Time
	JobType     string
	Tags        []string
	SalaryText  string // empty when absent
	SourceURL   string // empty when absent
}

// jobRecordWire is the payload shape the bulk endpoint consumes
type jobRecordWire struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Description *string  `json:"description"`
	PostingDate *string  `json:"posting_date"`
	JobType     string   `json:"job_type"`
	Tags        []string `json:"tags"`
	SalaryText  *string  `json:"salary_text"`
	SourceURL   *string  `json:"source_url"`
}

// MarshalJSON renders absent fields as null and the posting date as an ISO date
func (r JobRecord) MarshalJSON() ([]byte, error) {
	w := jobRecordWire{
		Title:       r.Title,
		Company:     r.Company,
		Location:    r.Location,
		Description: optional(r.Description),
		JobType:     r.JobType,
		Tags:        r.Tags,
		SalaryText:  optional(r.SalaryText),
		SourceURL:   optional(r.SourceURL),
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}
	if r.PostingDate != nil {
		d := r.PostingDate.Format(time.DateOnly)
		w.PostingDate = &d
	}
	return json.Marshal(w)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DetailSelectors contains CSS selectors for the fields of a detail page.
// Each list is tried in order and the first non-empty match wins.
type DetailSelectors struct {
	Title             []string
	Company           []string
	PostedAt          []string
	Salary            []string
	JobType           []string
	DescriptionBlocks []string
	LocationLinks     []string
	TagLinks          []string
}

// DefaultDetailSelectors matches the known DOM variants of the listing site
var DefaultDetailSelectors = DetailSelectors{
	Title:    []string{"h1", "h1.job-title", "h1[class*=title]", "header h1"},
	Company:  []string{"[class*=company] a", "[class*=company]", "div.company", "span.company"},
	PostedAt: []string{"[class*=posted]", "[class*=time]", "time", "span.time", "span.posted"},
	Salary:   []string{"[class*=salary]", ".salary", "span.salary", "div.salary"},
	JobType:  []string{"[class*=job-type]", ".job-type", "span.job-type"},
	DescriptionBlocks: []string{
		"article", ".job-content", "[class*=description]", "[class*=content]",
		"#job-description", ".job__description",
	},
	LocationLinks: []string{
		"a[href^='/countries/'], a[href^='/cities/'], " +
			"a[href^='/job-locations/'], a[href^='/locations/'], " +
			"[class*=location] a[href*='/']",
	},
	TagLinks: []string{
		"a[href^='/keywords/']",
		"a[href^='/sectors/']",
		"a[href^='/job-types/']",
		"a[href^='/experience-levels/']",
		".chip", ".badge", ".pill", ".tag", "[class*=tag]",
	},
}
