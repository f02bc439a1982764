package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"sjsage522/jobworker/helpers"
	"sjsage522/jobworker/logger"
	apperrors "sjsage522/jobworker/pkg/errors"
)

// ChromeSession drives a Chromium tab through Playwright
type ChromeSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	log     *logger.Logger
}

var _ Session = (*ChromeSession)(nil)

// NewChromeSession launches Chromium with an English locale and a desktop
// viewport. Any launch failure is a browser error and aborts the run.
func NewChromeSession(ctx context.Context, headless bool) (Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, apperrors.NewBrowser("chrome", "failed to start playwright", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args: []string{
			"--no-sandbox",
			"--disable-gpu",
			"--disable-dev-shm-usage",
			"--lang=en-US",
			"--disable-blink-features=AutomationControlled",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, apperrors.NewBrowser("chrome", "failed to launch chromium", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(helpers.RandomUserAgent()),
		Viewport:  &playwright.Size{Width: 1366, Height: 900},
		Locale:    playwright.String("en-US"),
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, apperrors.NewBrowser("chrome", "failed to create browser context", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, apperrors.NewBrowser("chrome", "failed to open page", err)
	}
	page.SetDefaultNavigationTimeout(float64(PageLoadTimeout.Milliseconds()))

	return &ChromeSession{
		pw:      pw,
		browser: browser,
		page:    page,
		log:     logger.ForScraper("chrome"),
	}, nil
}

// Navigate implements Session
func (c *ChromeSession) Navigate(ctx context.Context, url string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	resp, err := c.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(PageLoadTimeout.Milliseconds())),
	})
	if err != nil {
		return 0, apperrors.NewTransport("chrome", fmt.Sprintf("navigation to %s failed", url), err)
	}
	if resp == nil {
		return 0, nil
	}
	return resp.Status(), nil
}

// WaitFor implements Session
func (c *ChromeSession) WaitFor(selector string, timeout time.Duration) error {
	return c.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

// HTML implements Session
func (c *ChromeSession) HTML() (string, error) {
	return c.page.Content()
}

// Hrefs implements Session
func (c *ChromeSession) Hrefs(selector string) ([]string, error) {
	res, err := c.page.Evaluate(
		"sel => Array.from(document.querySelectorAll(sel)).map(a => a.href || '')",
		selector,
	)
	if err != nil {
		return nil, err
	}
	items, _ := res.([]interface{})
	hrefs := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			hrefs = append(hrefs, s)
		}
	}
	return hrefs, nil
}

// ScrollBy implements Session
func (c *ChromeSession) ScrollBy(px int) error {
	_, err := c.page.Evaluate("px => window.scrollBy(0, px)", px)
	return err
}

// ScrollToBottom implements Session
func (c *ChromeSession) ScrollToBottom() error {
	_, err := c.page.Evaluate("window.scrollTo(0, document.body.scrollHeight)")
	return err
}

// ClickFirstVisible implements Session
func (c *ChromeSession) ClickFirstVisible(selector string, labels []string) (bool, error) {
	elements, err := c.page.Locator(selector).All()
	if err != nil {
		return false, err
	}
	for _, el := range elements {
		text, err := el.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(500)})
		if err != nil {
			continue
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if !containsAny(text, labels) {
			continue
		}
		if visible, _ := el.IsVisible(); !visible {
			continue
		}
		if err := el.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(2000)}); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Close stops the browser and the Playwright driver
func (c *ChromeSession) Close() error {
	var firstErr error
	if err := c.browser.Close(); err != nil {
		firstErr = err
	}
	if err := c.pw.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		c.log.Warn().Err(firstErr).Msg("Browser shutdown was not clean")
	}
	return firstErr
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
