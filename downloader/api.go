package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"gazo/challenge"
	"gazo/metrics"

	"github.com/gocolly/colly"
)

// APIClient handles JSON endpoints (DuckDuckGo i.js and friends) through colly.
// Each request runs on a clone of the base collector so callbacks never pile up.
type APIClient struct {
	collector *colly.Collector
}

// NewAPIClient creates an API client. Passing an HTTPClient shares its cookie jar,
// which endpoints that hand out a token on the HTML page rely on.
func NewAPIClient(client *HTTPClient, timeout time.Duration) *APIClient {
	var collector *colly.Collector
	if client != nil {
		collector = client.CreateCollyCollector()
	} else {
		collector = colly.NewCollector(
			colly.UserAgent(DefaultUserAgent),
			colly.AllowURLRevisit(),
		)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	return &APIClient{collector: collector}
}

// FetchRaw makes an API request and returns the raw (decompressed) response body
func (c *APIClient) FetchRaw(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var responseData []byte
	var statusCode int
	var fetchErr error

	collector := c.collector.Clone()

	collector.OnResponse(func(r *colly.Response) {
		if _, err := challenge.DecompressResponse(r, "[APIClient]"); err != nil {
			log.Printf("[APIClient] Failed to decompress response: %v", err)
		}
		statusCode = r.StatusCode
		responseData = r.Body

		if blocked, info, _ := challenge.DetectFromColly(r); blocked {
			fetchErr = challenge.NewChallengeError(challenge.ChallengeURL(info, url), info)
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("request failed: %w", err)
		if r == nil {
			return
		}
		statusCode = r.StatusCode
		if r.StatusCode != 0 {
			fetchErr = &StatusError{URL: url, StatusCode: r.StatusCode}
		}
		if blocked, info, _ := challenge.DetectFromColly(r); blocked {
			log.Printf("[APIClient] %s page served on error", info.Kind)
			fetchErr = challenge.NewChallengeError(challenge.ChallengeURL(info, url), info)
		}
	})

	hdr := http.Header{}
	for k, v := range headers {
		hdr.Set(k, v)
	}

	visitErr := collector.Request(http.MethodGet, url, nil, nil, hdr)
	collector.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if visitErr != nil {
		return nil, fmt.Errorf("failed to visit URL: %w", visitErr)
	}
	if statusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: statusCode}
	}

	metrics.BytesFetched.Add(float64(len(responseData)))
	return responseData, nil
}

// FetchJSON makes an API request and unmarshals the JSON response
func (c *APIClient) FetchJSON(ctx context.Context, url string, headers map[string]string, result interface{}) error {
	merged := map[string]string{"Accept": "application/json, text/javascript, */*; q=0.01"}
	for k, v := range headers {
		merged[k] = v
	}

	body, err := c.FetchRaw(ctx, url, merged)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}
