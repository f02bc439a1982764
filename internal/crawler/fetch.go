package crawler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/jobworker/helpers"
	apperrors "sjsage522/jobworker/pkg/errors"
)

const detailReadySelector = "h1, [class*=job]"

// PageSource loads a detail page as a parsed document
type PageSource interface {
	Document(ctx context.Context, url string) (*goquery.Document, error)
}

// SessionSource renders detail pages in the browser session that collected
// the links
type SessionSource struct {
	Session   Session
	BlockTime time.Duration
}

// Document implements PageSource
func (s *SessionSource) Document(ctx context.Context, url string) (*goquery.Document, error) {
	status, err := s.Session.Navigate(ctx, url)
	if err != nil {
		return nil, err
	}
	if status == http.StatusTooManyRequests || status == 430 {
		return nil, apperrors.NewRateLimit("detail", s.BlockTime)
	}
	// a page that never shows a title is rejected later by the record builder
	_ = s.Session.WaitFor(detailReadySelector, DetailWaitTimeout)

	body, err := s.Session.HTML()
	if err != nil {
		return nil, apperrors.NewBrowser("detail", "failed to read page content", err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

// HTTPSource fetches detail pages without a browser. Listing pages still need
// the session because they are revealed by scrolling.
type HTTPSource struct {
	BlockTime time.Duration
}

// Document implements PageSource
func (s *HTTPSource) Document(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := helpers.FetchWithRandomHeaders(ctx, url)
	if err != nil {
		if _, ok := err.(*helpers.ErrRateLimited); ok {
			return nil, apperrors.NewRateLimit("detail", s.BlockTime)
		}
		return nil, apperrors.NewTransport("detail", "failed to fetch "+url, err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, apperrors.NewExtraction("detail", "failed to parse "+url, err)
	}
	return doc, nil
}
