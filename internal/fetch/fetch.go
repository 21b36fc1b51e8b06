// Package fetch renders pages for the browsing agent and reduces them to text and links.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is the default page render timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; ShowstartScout/1.0)"

// Renderer returns the HTML of a page after it has loaded.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// Error represents an error during page fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPRenderer fetches raw HTML without executing JavaScript.
// It is used when no Chrome binary is available.
type HTTPRenderer struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPRenderer creates an HTTPRenderer with the given timeout.
func NewHTTPRenderer(timeout time.Duration) *HTTPRenderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPRenderer{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: DefaultUserAgent,
	}
}

// Render retrieves HTML content from pageURL.
func (r *HTTPRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	if err := validateURL(pageURL); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &Error{URL: pageURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", r.UserAgent)

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", &Error{URL: pageURL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{URL: pageURL, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{URL: pageURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	return string(body), nil
}

func validateURL(pageURL string) error {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &Error{URL: pageURL, Message: "invalid URL", Cause: err}
	}
	return nil
}
