package crawler

import (
	"context"
	"time"
)

// Session is a single browser tab. Implementations are not safe for
// concurrent navigations; callers drive one page load at a time.
type Session interface {
	// Navigate loads url and returns the HTTP status of the main document
	Navigate(ctx context.Context, url string) (int, error)
	// WaitFor blocks until selector is attached to the DOM or timeout elapses
	WaitFor(selector string, timeout time.Duration) error
	// HTML returns the current rendered document
	HTML() (string, error)
	// Hrefs returns the absolute href of every element matching selector
	Hrefs(selector string) ([]string, error)
	ScrollBy(px int) error
	ScrollToBottom() error
	// ClickFirstVisible clicks the first visible element matching selector
	// whose text contains one of labels (case-insensitive)
	ClickFirstVisible(selector string, labels []string) (bool, error)
	Close() error
}

// SessionFactory opens a new browser session
type SessionFactory func(ctx context.Context, headless bool) (Session, error)

// Browser timing
const (
	PageLoadTimeout   = 40 * time.Second
	DetailWaitTimeout = 15 * time.Second
	ConsentTimeout    = 6 * time.Second
	ConsentPoll       = 500 * time.Millisecond
)

// ConsentLabels are the affirmative texts of cookie-consent controls
var ConsentLabels = []string{"accept", "agree", "got it", "i accept", "allow"}
