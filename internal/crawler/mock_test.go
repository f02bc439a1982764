package crawler

import (
	"context"
	"errors"
	"time"
)

// mockSession is a scripted in-memory browser tab
type mockSession struct {
	pages    map[string]string
	statuses map[string]int

	// linkBatches[i] is what Hrefs returns on its i-th call; the last batch
	// repeats once the script runs out
	linkBatches [][]string
	hrefCalls   int

	waitErr       error
	consentAfter  int // ClickFirstVisible succeeds on this call (1-based); 0 never
	consentCalls  int
	onConsent     func()
	scrolls       int
	bottomScrolls int
	visited       []string
	current       string
	closed        bool
}

func newMockSession() *mockSession {
	return &mockSession{
		pages:    make(map[string]string),
		statuses: make(map[string]int),
	}
}

func (m *mockSession) Navigate(ctx context.Context, url string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.visited = append(m.visited, url)
	m.current = url
	if status, ok := m.statuses[url]; ok {
		return status, nil
	}
	if _, ok := m.pages[url]; !ok {
		return 404, nil
	}
	return 200, nil
}

func (m *mockSession) WaitFor(selector string, timeout time.Duration) error {
	return m.waitErr
}

func (m *mockSession) HTML() (string, error) {
	if m.current == "" {
		return "", errors.New("no page loaded")
	}
	return m.pages[m.current], nil
}

func (m *mockSession) Hrefs(selector string) ([]string, error) {
	if len(m.linkBatches) == 0 {
		return nil, nil
	}
	i := m.hrefCalls
	if i >= len(m.linkBatches) {
		i = len(m.linkBatches) - 1
	}
	m.hrefCalls++
	return m.linkBatches[i], nil
}

func (m *mockSession) ScrollBy(px int) error {
	m.scrolls++
	return nil
}

func (m *mockSession) ScrollToBottom() error {
	m.bottomScrolls++
	return nil
}

func (m *mockSession) ClickFirstVisible(selector string, labels []string) (bool, error) {
	m.consentCalls++
	if m.onConsent != nil {
		m.onConsent()
	}
	return m.consentAfter > 0 && m.consentCalls >= m.consentAfter, nil
}

func (m *mockSession) Close() error {
	m.closed = true
	return nil
}
