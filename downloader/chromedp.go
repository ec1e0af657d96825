package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"gazo/challenge"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const scrollPause = 800 * time.Millisecond

// BrowserSession manages a headless chromedp browser context.
// Image result pages render most of their grid from script, so the browser is the
// fallback when a plain HTTP fetch yields nothing usable.
type BrowserSession struct {
	ctx       context.Context
	cancel    context.CancelFunc
	userAgent string
	headers   network.Headers
}

// NewBrowserSession creates a headless browser session
func NewBrowserSession(ctx context.Context, userAgent string) (*BrowserSession, error) {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1366, 900),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	return &BrowserSession{
		ctx:       browserCtx,
		cancel:    func() { cancelBrowser(); cancelAlloc() },
		userAgent: userAgent,
		headers: network.Headers{
			"Accept-Language": "en-US,en;q=0.9",
		},
	}, nil
}

// Navigate loads url and waits for waitSelector (or the body when empty).
// The rendered page is checked for block pages before returning.
func (bs *BrowserSession) Navigate(url string, waitSelector string) error {
	ctx, cancel := context.WithTimeout(bs.ctx, 45*time.Second)
	defer cancel()

	tasks := chromedp.Tasks{
		network.Enable(),
		network.SetExtraHTTPHeaders(bs.headers),
		chromedp.Navigate(url),
	}
	if waitSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
	} else {
		tasks = append(tasks, chromedp.WaitReady("body"))
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	html, err := bs.GetHTML()
	if err != nil {
		log.Printf("[Browser] Warning: could not read HTML for block-page detection: %v", err)
		return nil
	}

	var location string
	if err := chromedp.Run(ctx, chromedp.Location(&location)); err != nil {
		location = url
	}

	// chromedp gives no status code, treat the rendered page as a 200 at its final location
	fakeReq, _ := http.NewRequest(http.MethodGet, location, nil)
	fakeResp := &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader([]byte(html))),
		Header:     make(http.Header),
		Request:    fakeReq,
	}

	blocked, info, detectErr := challenge.Detect(fakeResp)
	if detectErr != nil {
		log.Printf("[Browser] Block-page detection error: %v", detectErr)
	}
	if blocked {
		log.Printf("[Browser] %s page rendered for %s", info.Kind, url)
		return challenge.NewChallengeError(challenge.ChallengeURL(info, url), info)
	}

	log.Printf("[Browser] Navigation successful: %s", url)
	return nil
}

// ScrollToLoad scrolls to the bottom rounds times so lazy grids load more results
func (bs *BrowserSession) ScrollToLoad(rounds int) error {
	if rounds <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(bs.ctx, time.Duration(rounds)*(scrollPause+5*time.Second))
	defer cancel()

	for i := 0; i < rounds; i++ {
		var ignored interface{}
		err := chromedp.Run(ctx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, &ignored),
			chromedp.Sleep(scrollPause),
		)
		if err != nil {
			return fmt.Errorf("scroll %d failed: %w", i+1, err)
		}
	}
	log.Printf("[Browser] Scrolled %d times", rounds)
	return nil
}

// Evaluate runs JavaScript and returns the result
func (bs *BrowserSession) Evaluate(js string, res interface{}) error {
	ctx, cancel := context.WithTimeout(bs.ctx, 30*time.Second)
	defer cancel()

	return chromedp.Run(ctx, chromedp.Evaluate(js, res))
}

// GetHTML returns the page HTML
func (bs *BrowserSession) GetHTML() (string, error) {
	ctx, cancel := context.WithTimeout(bs.ctx, 10*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html))
	return html, err
}

// Close closes the browser session
func (bs *BrowserSession) Close() {
	if bs.cancel != nil {
		bs.cancel()
	}
}

// FetchRenderedHTML renders url in a fresh headless browser, scrolls, and returns the HTML
func FetchRenderedHTML(ctx context.Context, url, userAgent, waitSelector string, scrolls int) (string, error) {
	session, err := NewBrowserSession(ctx, userAgent)
	if err != nil {
		return "", fmt.Errorf("failed to create browser session: %w", err)
	}
	defer session.Close()

	if err := session.Navigate(url, waitSelector); err != nil {
		return "", err
	}

	if err := session.ScrollToLoad(scrolls); err != nil {
		log.Printf("[Browser] %v (continuing with what loaded)", err)
	}

	html, err := session.GetHTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}
