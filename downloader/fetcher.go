package downloader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"gazo/challenge"
	"gazo/metrics"
)

const searchAttempts = 3

// searchBackoff is the base delay between search attempts
var searchBackoff = time.Second

// SearchImages runs q against engine with validation and retries.
// Block pages are returned immediately. Results are de-duplicated by URL
// and truncated to q.Count.
func SearchImages(ctx context.Context, engine Engine, q Query) ([]ImageResult, error) {
	q.Term = strings.TrimSpace(q.Term)
	if q.Term == "" {
		return nil, ErrEmptyQuery
	}
	if q.Count < MinImageCount || q.Count > MaxImageCount {
		return nil, ErrCountOutOfRange
	}
	q = q.Normalize()

	var lastErr error

	for attempt := 0; attempt < searchAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * searchBackoff
			log.Printf("[Search] Retry %d/%d for %q on %s after %v", attempt+1, searchAttempts, q.Term, engine.Name(), backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		results, err := engine.Search(ctx, q)
		if err == nil {
			results = uniqueByURL(results)
			if len(results) > q.Count {
				results = results[:q.Count]
			}
			if len(results) == 0 {
				metrics.Searches.WithLabelValues(engine.Name(), "empty").Inc()
				return nil, ErrNoResults
			}
			if attempt > 0 {
				log.Printf("[Search] Success after %d attempts", attempt+1)
			}
			log.Printf("[Search] %s returned %d images for %q", engine.Name(), len(results), q.Term)
			metrics.Searches.WithLabelValues(engine.Name(), "ok").Inc()
			return results, nil
		}

		if chErr, ok := challenge.IsChallenge(err); ok {
			log.Printf("[Search] %s block page on %s: %s", chErr.Kind, engine.Name(), chErr.URL)
			metrics.Searches.WithLabelValues(engine.Name(), "blocked").Inc()
			return nil, err
		}

		if ctx.Err() != nil {
			metrics.Searches.WithLabelValues(engine.Name(), "cancelled").Inc()
			return nil, ctx.Err()
		}

		if !retryableSearchError(err) {
			metrics.Searches.WithLabelValues(engine.Name(), "error").Inc()
			return nil, err
		}

		lastErr = err
		log.Printf("[Search] %s failed (attempt %d/%d): %v", engine.Name(), attempt+1, searchAttempts, err)
	}

	metrics.Searches.WithLabelValues(engine.Name(), "error").Inc()
	return nil, fmt.Errorf("search failed after %d attempts: %w", searchAttempts, lastErr)
}

// NonRetryable marks engine errors that another attempt cannot fix (bad config, bad key)
type NonRetryable interface {
	NonRetryable() bool
}

func retryableSearchError(err error) bool {
	var nr NonRetryable
	if errors.As(err, &nr) && nr.NonRetryable() {
		return false
	}
	return true
}

func uniqueByURL(in []ImageResult) []ImageResult {
	seen := make(map[string]struct{}, len(in))
	out := make([]ImageResult, 0, len(in))
	for _, r := range in {
		key := strings.TrimSpace(r.URL)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		r.URL = key
		out = append(out, r)
	}
	return out
}
