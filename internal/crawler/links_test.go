package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sjsage522/jobworker/pkg/errors"
)

const listingURL = "https://www.actuarylist.com/experience-levels/senior-actuary"

func detailLinks(from, to int) []string {
	var out []string
	for i := from; i < to; i++ {
		out = append(out, fmt.Sprintf("https://www.actuarylist.com/actuarial-jobs/%d-acme-re", i))
	}
	return out
}

func newTestCollector(s Session) *LinkCollector {
	lc := NewLinkCollector(s)
	lc.sleep = func(time.Duration) {}
	return lc
}

func TestLinkCollectorScrollsUntilEnough(t *testing.T) {
	session := newMockSession()
	session.pages[listingURL] = "<html></html>"
	session.consentAfter = 2

	first := append(detailLinks(0, 2),
		"https://www.actuarylist.com/actuarial-jobs/",
		"https://www.actuarylist.com/actuarial-jobs/remote",
		"https://www.actuarylist.com/actuarial-jobs/0-acme-re",
	)
	session.linkBatches = [][]string{first, first, detailLinks(0, 25)}

	lc := newTestCollector(session)
	links, err := lc.Collect(context.Background(), listingURL, 5)
	require.NoError(t, err)

	assert.Equal(t, detailLinks(0, 25), links)
	assert.Equal(t, StateLinksCollected, lc.State())
	assert.Equal(t, 3, session.scrolls)
	assert.Equal(t, 1, session.bottomScrolls, "a scroll without new links forces a jump to the bottom")
	assert.Equal(t, 2, session.consentCalls)
}

func TestLinkCollectorStopsAtScrollBudget(t *testing.T) {
	session := newMockSession()
	session.pages[listingURL] = "<html></html>"
	session.linkBatches = [][]string{detailLinks(0, 3)}

	lc := newTestCollector(session)
	lc.MaxScrolls = 4
	links, err := lc.Collect(context.Background(), listingURL, 50)
	require.NoError(t, err)

	assert.Equal(t, detailLinks(0, 3), links)
	assert.Equal(t, 4, session.scrolls)
	assert.Equal(t, 3, session.bottomScrolls)
	assert.Equal(t, int(ConsentTimeout/ConsentPoll), session.consentCalls, "consent is retried until its timeout")
}

func TestLinkCollectorConsentStopsAtDeadline(t *testing.T) {
	session := newMockSession()
	session.pages[listingURL] = "<html></html>"
	session.linkBatches = [][]string{detailLinks(0, 25)}

	clock := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	session.onConsent = func() { clock = clock.Add(4 * time.Second) }

	lc := newTestCollector(session)
	lc.now = func() time.Time { return clock }
	_, err := lc.Collect(context.Background(), listingURL, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, session.consentCalls)
}

func TestLinkCollectorFailsWithoutDetailLinks(t *testing.T) {
	session := newMockSession()
	session.pages[listingURL] = "<html></html>"
	session.waitErr = fmt.Errorf("timeout")

	lc := newTestCollector(session)
	links, err := lc.Collect(context.Background(), listingURL, 20)
	assert.Nil(t, links)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeBrowser))
	assert.Equal(t, StateOnListingPage, lc.State())
	assert.Zero(t, session.scrolls)
}

func TestLinkCollectorRateLimited(t *testing.T) {
	session := newMockSession()
	session.statuses[listingURL] = http.StatusTooManyRequests

	lc := newTestCollector(session)
	lc.BlockTime = time.Minute
	_, err := lc.Collect(context.Background(), listingURL, 20)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimit))
}

func TestSessionSourceDocument(t *testing.T) {
	url := "https://www.actuarylist.com/actuarial-jobs/7-acme"
	session := newMockSession()
	session.pages[url] = `<html><body><h1>Reserving Actuary</h1></body></html>`
	session.statuses["https://www.actuarylist.com/actuarial-jobs/8-busy"] = 429

	src := &SessionSource{Session: session}
	doc, err := src.Document(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "Reserving Actuary", doc.Find("h1").Text())

	_, err = src.Document(context.Background(), "https://www.actuarylist.com/actuarial-jobs/8-busy")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimit))
}

func TestHTTPSourceDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/actuarial-jobs/1-acme":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, `<html><body><h1>Pricing Actuary</h1></body></html>`)
		case "/actuarial-jobs/2-slow":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	src := &HTTPSource{}
	doc, err := src.Document(context.Background(), server.URL+"/actuarial-jobs/1-acme")
	require.NoError(t, err)
	record, ok := BuildRecord(doc, server.URL+"/actuarial-jobs/1-acme")
	require.True(t, ok)
	assert.Equal(t, "Pricing Actuary", record.Title)
	assert.Equal(t, "Acme", record.Company)

	_, err = src.Document(context.Background(), server.URL+"/actuarial-jobs/2-slow")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimit))

	_, err = src.Document(context.Background(), server.URL+"/actuarial-jobs/3-broken")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTransport))
}
