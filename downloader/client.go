package downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"gazo/challenge"
	"gazo/metrics"
	"gazo/parser"

	"github.com/gocolly/colly"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	DefaultMaxRetries   = 3
	DefaultMaxBodyBytes = 20 << 20
	ImageFetchTimeout   = 10 * time.Second
)

// ClientOptions configures an HTTPClient. Zero values select the defaults.
type ClientOptions struct {
	UserAgent    string
	Timeout      time.Duration // per attempt
	MaxRetries   int
	MaxBodyBytes int64
	RetryBackoff time.Duration // base of the exponential backoff
	ImageTimeout time.Duration
}

// HTTPClient is the shared client for result pages, JSON APIs and image downloads.
// It keeps cookies between requests (consent and session cookies matter to search engines),
// retries timeouts and 5xx responses, decompresses bodies and detects block pages.
type HTTPClient struct {
	httpClient   *http.Client
	jar          *cookiejar.Jar
	userAgent    string
	maxRetries   int
	baseTimeout  time.Duration
	maxBodyBytes int64
	backoff      time.Duration
	imageTimeout time.Duration
}

// NewHTTPClient creates a client with a public-suffix aware cookie jar
func NewHTTPClient(opts ClientOptions) (*HTTPClient, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &HTTPClient{
		httpClient:   &http.Client{Jar: jar},
		jar:          jar,
		userAgent:    opts.UserAgent,
		maxRetries:   opts.MaxRetries,
		baseTimeout:  opts.Timeout,
		maxBodyBytes: opts.MaxBodyBytes,
		backoff:      opts.RetryBackoff,
		imageTimeout: opts.ImageTimeout,
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.maxRetries <= 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.baseTimeout <= 0 {
		c.baseTimeout = 15 * time.Second
	}
	if c.maxBodyBytes <= 0 {
		c.maxBodyBytes = DefaultMaxBodyBytes
	}
	if c.backoff <= 0 {
		c.backoff = time.Second
	}
	if c.imageTimeout <= 0 {
		c.imageTimeout = ImageFetchTimeout
	}
	return c, nil
}

// UserAgent returns the User-Agent sent with every request
func (c *HTTPClient) UserAgent() string {
	return c.userAgent
}

// FetchHTML fetches a result page with automatic retry and block-page detection
func (c *HTTPClient) FetchHTML(ctx context.Context, targetURL string) (string, error) {
	body, err := c.fetchWithRetry(ctx, targetURL, map[string]string{
		"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchBytes fetches any document with extra request headers
func (c *HTTPClient) FetchBytes(ctx context.Context, targetURL string, headers map[string]string) ([]byte, error) {
	return c.fetchWithRetry(ctx, targetURL, headers)
}

// FetchJSON fetches targetURL and unmarshals the body into out
func (c *HTTPClient) FetchJSON(ctx context.Context, targetURL string, headers map[string]string, out interface{}) error {
	merged := map[string]string{"Accept": "application/json"}
	for k, v := range headers {
		merged[k] = v
	}

	body, err := c.fetchWithRetry(ctx, targetURL, merged)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

func (c *HTTPClient) fetchWithRetry(ctx context.Context, targetURL string, headers map[string]string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		timeout := c.baseTimeout + time.Duration(attempt)*5*time.Second

		if attempt > 0 {
			log.Printf("[HTTPClient] Retry attempt %d/%d (timeout: %v) for: %s",
				attempt+1, c.maxRetries, timeout, targetURL)
		}

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		body, err := c.fetchAttempt(reqCtx, targetURL, headers)
		cancel()

		if err == nil {
			if attempt > 0 {
				log.Printf("[HTTPClient] Success after %d attempts", attempt+1)
			}
			return body, nil
		}

		// a block page is not going away by asking again
		if chErr, ok := challenge.IsChallenge(err); ok {
			log.Printf("[HTTPClient] %s page served for %s", chErr.Kind, targetURL)
			return nil, chErr
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		if !isRetryable(err) {
			log.Printf("[HTTPClient] Non-retryable error, not retrying: %v", err)
			return nil, err
		}

		log.Printf("[HTTPClient] Attempt %d/%d failed: %v", attempt+1, c.maxRetries, err)

		if attempt < c.maxRetries-1 {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * c.backoff
			log.Printf("[HTTPClient] Waiting %v before retry...", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	log.Printf("[HTTPClient] Failed after %d attempts: %s", c.maxRetries, targetURL)
	return nil, fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// fetchAttempt performs a single request
func (c *HTTPClient) fetchAttempt(ctx context.Context, targetURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.applyBrowserHeaders(req)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := c.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}

	decompressed, wasCompressed, err := challenge.DecompressResponseBody(bodyBytes, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress response: %w", err)
	}
	if wasCompressed {
		log.Printf("[HTTPClient] Decompressed response: %d -> %d bytes", len(bodyBytes), len(decompressed))
		bodyBytes = decompressed
	}

	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	blocked, info, err := challenge.Detect(resp)
	if err != nil {
		return nil, fmt.Errorf("challenge detection error: %w", err)
	}
	if blocked {
		return nil, challenge.NewChallengeError(challenge.ChallengeURL(info, targetURL), info)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: targetURL, StatusCode: resp.StatusCode}
	}

	metrics.BytesFetched.Add(float64(len(bodyBytes)))
	return bodyBytes, nil
}

// FetchImage downloads one image. It makes a single attempt with the image timeout,
// the caller decides about retries.
func (c *HTTPClient) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.imageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: imageURL, StatusCode: resp.StatusCode}
	}

	data, err := c.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrNotAnImage)
	}

	// trust the bytes over the header, plenty of CDNs send octet-stream
	if _, err := parser.DetectImageFormat(data); err != nil {
		return nil, fmt.Errorf("%w: content type %q", ErrNotAnImage, resp.Header.Get("Content-Type"))
	}

	metrics.ImagesFetched.Inc()
	metrics.BytesFetched.Add(float64(len(data)))
	return data, nil
}

func (c *HTTPClient) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > c.maxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

func (c *HTTPClient) applyBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br, zstd")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")

	if strings.Contains(c.userAgent, "Chrome") {
		req.Header.Set("sec-ch-ua", `"Chromium";v="131", "Not_A Brand";v="24"`)
		req.Header.Set("sec-ch-ua-mobile", "?0")
		req.Header.Set("sec-ch-ua-platform", `"Windows"`)
	}
}

// CreateCollyCollector creates a colly collector sharing this client's User-Agent,
// cookie jar and decompression
func (c *HTTPClient) CreateCollyCollector() *colly.Collector {
	collector := colly.NewCollector(
		colly.UserAgent(c.userAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(c.baseTimeout)
	collector.SetCookieJar(c.jar)

	collector.OnResponse(func(r *colly.Response) {
		if _, err := challenge.DecompressResponse(r, "[HTTPClient]"); err != nil {
			log.Printf("[HTTPClient] Failed to decompress: %v", err)
		}
	})

	return collector
}

func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout exceeded") ||
		strings.Contains(err.Error(), "connection reset by peer")
}
