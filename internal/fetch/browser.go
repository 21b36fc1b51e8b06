// Package fetch - browser.go provides headless browser rendering for the JavaScript-heavy ticketing site.
package fetch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeRenderer renders pages in headless Chrome. Requires Chrome/Chromium on the host.
type ChromeRenderer struct {
	Headless bool
	Timeout  time.Duration
	// Settle is how long to wait after <body> is ready for client-side rendering.
	Settle  time.Duration
	Verbose bool
}

// NewChromeRenderer creates a ChromeRenderer with sensible defaults.
func NewChromeRenderer(headless bool, timeout time.Duration) *ChromeRenderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ChromeRenderer{
		Headless: headless,
		Timeout:  timeout,
		Settle:   3 * time.Second,
	}
}

// Render navigates to pageURL and returns the rendered HTML.
// The browser is torn down when Render returns or ctx is cancelled.
func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	if err := validateURL(pageURL); err != nil {
		return "", err
	}
	if r.Verbose {
		log.Printf("[BROWSER] Starting headless browser for: %s", pageURL)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", r.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.Timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(r.Settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: pageURL, Message: "browser rendering failed", Cause: err}
	}

	if r.Verbose {
		log.Printf("[BROWSER] Rendered HTML: %d bytes", len(html))
	}
	return html, nil
}

// String describes the renderer for startup logs.
func (r *ChromeRenderer) String() string {
	return fmt.Sprintf("chrome(headless=%t, timeout=%s)", r.Headless, r.Timeout)
}
