package crawler

import (
	"context"
	"net/http"
	"time"

	"sjsage522/jobworker/helpers"
	"sjsage522/jobworker/logger"
	apperrors "sjsage522/jobworker/pkg/errors"
)

// CollectorState is the position of a LinkCollector in its run
type CollectorState string

const (
	StateIdle           CollectorState = "idle"
	StateOnListingPage  CollectorState = "on_listing_page"
	StateScrolling      CollectorState = "scrolling"
	StateLinksCollected CollectorState = "links_collected"
)

// Scrolling defaults
const (
	DefaultScrollStep  = 600
	DefaultMaxScrolls  = 60
	ScrollPause        = 350 * time.Millisecond
	StallPause         = 800 * time.Millisecond
	MinCollectTarget   = 20
	detailLinkSelector = "a[href*='/actuarial-jobs/']"
	consentSelector    = "button, a"
)

// LinkCollector discovers detail-page links on a listing page by scrolling
// until enough have been revealed
type LinkCollector struct {
	Session    Session
	ScrollStep int
	MaxScrolls int
	BlockTime  time.Duration

	state CollectorState
	sleep func(time.Duration)
	now   func() time.Time
	log   *logger.Logger
}

// NewLinkCollector creates a collector over session with default pacing
func NewLinkCollector(session Session) *LinkCollector {
	return &LinkCollector{
		Session:    session,
		ScrollStep: DefaultScrollStep,
		MaxScrolls: DefaultMaxScrolls,
		state:      StateIdle,
		sleep:      time.Sleep,
		now:        time.Now,
		log:        logger.ForScraper("links"),
	}
}

// State reports where the collector is in its run
func (lc *LinkCollector) State() CollectorState {
	return lc.state
}

// Collect loads listingURL and returns detail links in discovery order. The
// only failures are a rate-limited listing page and a listing page that never
// shows a detail link; everything else degrades to fewer links.
func (lc *LinkCollector) Collect(ctx context.Context, listingURL string, want int) ([]string, error) {
	lc.state = StateOnListingPage
	status, err := lc.Session.Navigate(ctx, listingURL)
	if err != nil {
		return nil, err
	}
	if status == http.StatusTooManyRequests || status == 430 {
		return nil, apperrors.NewRateLimit("links", lc.BlockTime)
	}

	lc.acceptConsent(ctx)

	if err := lc.Session.WaitFor(detailLinkSelector, DetailWaitTimeout); err != nil {
		return nil, apperrors.NewBrowser("links", "listing page never showed a detail link", err)
	}

	if want < MinCollectTarget {
		want = MinCollectTarget
	}
	lc.state = StateScrolling
	lc.scrollUntil(ctx, want)

	links := lc.scan()
	lc.state = StateLinksCollected
	lc.log.Info().Int("links", len(links)).Str("url", listingURL).Msg("Collected detail links")
	return links, nil
}

// acceptConsent clicks a cookie-consent control if one appears in time. Slow
// attempts on pages with many controls still stop at ConsentTimeout.
func (lc *LinkCollector) acceptConsent(ctx context.Context) {
	deadline := lc.now().Add(ConsentTimeout)
	attempts := int(ConsentTimeout / ConsentPoll)
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil || !lc.now().Before(deadline) {
			return
		}
		clicked, err := lc.Session.ClickFirstVisible(consentSelector, ConsentLabels)
		if err == nil && clicked {
			lc.log.Debug().Msg("Dismissed cookie consent")
			return
		}
		lc.sleep(ConsentPoll)
	}
}

func (lc *LinkCollector) scrollUntil(ctx context.Context, want int) {
	lastCount := 0
	for i := 0; i < lc.MaxScrolls; i++ {
		if ctx.Err() != nil {
			return
		}
		if err := lc.Session.ScrollBy(lc.ScrollStep); err != nil {
			lc.log.Debug().Err(err).Msg("Scroll failed")
		}
		lc.sleep(helpers.Jitter(ScrollPause, 50*time.Millisecond, 150*time.Millisecond))

		count := len(lc.scan())
		if count >= want {
			return
		}
		if count == lastCount {
			if err := lc.Session.ScrollToBottom(); err != nil {
				lc.log.Debug().Err(err).Msg("Scroll to bottom failed")
			}
			lc.sleep(StallPause)
		}
		lastCount = count
	}
}

// scan returns the qualifying detail links currently in the DOM
func (lc *LinkCollector) scan() []string {
	hrefs, err := lc.Session.Hrefs(detailLinkSelector)
	if err != nil {
		lc.log.Debug().Err(err).Msg("Link scan failed")
		return nil
	}
	links := make([]string, 0, len(hrefs))
	for _, h := range hrefs {
		if DetailHrefPattern.MatchString(h) {
			links = append(links, h)
		}
	}
	return uniqueStrings(links)
}
