package downloader

import (
	"context"
	"fmt"
	"log"

	"gazo/challenge"
)

// RenderFunc renders a page in a real browser. It is swapped out in tests.
type RenderFunc func(ctx context.Context, url, userAgent, waitSelector string, scrolls int) (string, error)

// RequestExecutor decides the best method to fetch a result page (HTTP vs browser)
// and handles the fallback between them
type RequestExecutor struct {
	httpClient     *HTTPClient
	browserEnabled bool
	scrolls        int
	render         RenderFunc
}

// NewRequestExecutor creates an executor. With browserEnabled false the executor
// never starts chromedp and HTTP errors are returned as they are.
func NewRequestExecutor(client *HTTPClient, browserEnabled bool, scrolls int) *RequestExecutor {
	return &RequestExecutor{
		httpClient:     client,
		browserEnabled: browserEnabled,
		scrolls:        scrolls,
		render:         FetchRenderedHTML,
	}
}

// SetRenderer replaces the browser renderer
func (e *RequestExecutor) SetRenderer(fn RenderFunc) {
	e.render = fn
}

// BrowserEnabled reports whether browser fallback is available
func (e *RequestExecutor) BrowserEnabled() bool {
	return e.browserEnabled && e.render != nil
}

// FetchHTML fetches HTML with automatic HTTP -> browser fallback.
// Block pages are returned straight away, a browser would be served the same page.
func (e *RequestExecutor) FetchHTML(ctx context.Context, targetURL string, waitSelector string) (string, error) {
	log.Printf("[Executor] Fetching: %s", targetURL)

	html, err := e.httpClient.FetchHTML(ctx, targetURL)
	if err == nil {
		log.Printf("[Executor] HTTP fetch successful (%d bytes)", len(html))
		return html, nil
	}

	if chErr, ok := challenge.IsChallenge(err); ok {
		log.Printf("[Executor] %s page - needs manual solve", chErr.Kind)
		return "", chErr
	}

	if ctx.Err() != nil || !e.BrowserEnabled() {
		return "", err
	}

	log.Printf("[Executor] HTTP failed (%v), trying browser fallback...", err)
	return e.FetchRendered(ctx, targetURL, waitSelector)
}

// FetchRendered skips plain HTTP and renders the page in the browser. Engines call it
// when the static HTML parsed but produced no candidates.
func (e *RequestExecutor) FetchRendered(ctx context.Context, targetURL string, waitSelector string) (string, error) {
	if !e.BrowserEnabled() {
		return "", fmt.Errorf("browser fallback disabled for %s", targetURL)
	}

	log.Printf("[Executor] Starting browser fetch for: %s", targetURL)
	html, err := e.render(ctx, targetURL, e.httpClient.UserAgent(), waitSelector, e.scrolls)
	if err != nil {
		if _, ok := challenge.IsChallenge(err); ok {
			return "", err
		}
		return "", fmt.Errorf("browser fetch failed: %w", err)
	}

	log.Printf("[Executor] Browser fetch successful")
	return html, nil
}
