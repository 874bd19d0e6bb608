// Package scrape fetches company websites and reduces them to the plain
// text the summarizer consumes.
package scrape

import "context"

// Status classifies a scrape outcome.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusFailedFetch Status = "failed_fetch"
	StatusFailedParse Status = "failed_parse"
	StatusTooShort    Status = "content_too_short"
	StatusNotFound    Status = "not_found"
)

// Result holds a scrape outcome. Content is set only on success. SourceURL
// is the page that produced the content, which may be a subpage of the
// requested URL.
type Result struct {
	Status    Status
	Content   string
	SourceURL string
	Message   string
}

// OK reports whether the scrape produced usable content.
func (r *Result) OK() bool {
	return r != nil && r.Status == StatusSuccess && r.Content != ""
}

// Scraper fetches a company website and returns its cleaned text content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
}
