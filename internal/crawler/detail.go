package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var companySlugPattern = regexp.MustCompile(`/actuarial-jobs/\d+-([a-z0-9\-]+)`)

// BuildRecord composes the field extractors over one detail page. It returns
// false when the page has no title, the only condition that drops a record.
func (s DetailSelectors) BuildRecord(doc *goquery.Document, sourceURL string) (*JobRecord, bool) {
	title := strings.TrimSpace(firstText(doc, s.Title))
	if title == "" {
		return nil, false
	}

	company := firstText(doc, s.Company)
	if company == "" {
		company = companyFromSlug(sourceURL)
	}
	if company == "" {
		company = UnknownFallback
	}

	location, ok := s.Location(doc)
	if !ok {
		location = UnknownFallback
	}

	record := &JobRecord{
		Title:      title,
		Company:    strings.TrimSpace(company),
		Location:   location,
		JobType:    firstText(doc, s.JobType),
		Tags:       s.Tags(doc),
		SalaryText: firstText(doc, s.Salary),
		SourceURL:  sourceURL,
	}
	if record.JobType == "" {
		record.JobType = DefaultJobType
	}
	if rel := firstText(doc, s.PostedAt); rel != "" {
		if date, ok := ParseRelativeTime(rel); ok {
			record.PostingDate = &date
		}
	}
	if desc, ok := s.Description(doc); ok {
		record.Description = desc
	}
	return record, true
}

// BuildRecord builds a record with the default selectors
func BuildRecord(doc *goquery.Document, sourceURL string) (*JobRecord, bool) {
	return DefaultDetailSelectors.BuildRecord(doc, sourceURL)
}

// companyFromSlug turns ".../actuarial-jobs/123-acme-re" into "Acme Re"
func companyFromSlug(url string) string {
	m := companySlugPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	caser := cases.Title(language.English)
	parts := strings.Split(m[1], "-")
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	return strings.Join(parts, " ")
}
