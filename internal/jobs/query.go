package jobs

import "strings"

// Sort is one of the supported orderings of a job listing
type Sort string

const (
	SortPostingDateDesc Sort = "posting_date_desc"
	SortPostingDateAsc  Sort = "posting_date_asc"
	SortTitleAsc        Sort = "title_asc"
	SortTitleDesc       Sort = "title_desc"
)

// ParseSort maps a query value to a Sort, falling back to newest first
func ParseSort(s string) Sort {
	switch v := Sort(strings.ToLower(strings.TrimSpace(s))); v {
	case SortPostingDateDesc, SortPostingDateAsc, SortTitleAsc, SortTitleDesc:
		return v
	}
	return SortPostingDateDesc
}

// Filter narrows a listing. Empty fields do not filter.
type Filter struct {
	Query    string   // substring of title or company
	Location string   // substring of location
	JobType  string   // exact, case-insensitive
	Tags     []string // normalized; every tag must be attached
}

// ParseTagArgs splits repeated and comma-separated tag arguments
func ParseTagArgs(values []string) []string {
	var tags []string
	for _, v := range values {
		tags = append(tags, splitTags(v)...)
	}
	return NormalizeTags(tags)
}

// ListParams is a resolved listing request. Page and PageSize are already
// clamped when a Repository sees them.
type ListParams struct {
	Filter   Filter
	Sort     Sort
	Page     int
	PageSize int
}

// Offset is the number of rows before the requested page
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PageMeta describes the neighbourhood of a page
type PageMeta struct {
	Pages    int  `json:"pages"`
	HasPrev  bool `json:"has_prev"`
	HasNext  bool `json:"has_next"`
	PrevPage *int `json:"prev_page"`
	NextPage *int `json:"next_page"`
}

// Page is one page of a listing
type Page struct {
	Items    []Job    `json:"items"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Total    int      `json:"total"`
	Meta     PageMeta `json:"page_meta"`
}

// NewPage computes page metadata. A page past the end keeps its number and
// carries no items.
func NewPage(items []Job, total, page, pageSize int) Page {
	if items == nil {
		items = []Job{}
	}
	pages := (total + pageSize - 1) / pageSize
	meta := PageMeta{
		Pages:   pages,
		HasPrev: page > 1,
		HasNext: page < pages,
	}
	if meta.HasPrev {
		prev := page - 1
		meta.PrevPage = &prev
	}
	if meta.HasNext {
		next := page + 1
		meta.NextPage = &next
	}
	return Page{Items: items, Page: page, PageSize: pageSize, Total: total, Meta: meta}
}
