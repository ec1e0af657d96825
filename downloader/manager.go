package downloader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gazo/metrics"
	"gazo/parser"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers      = 4
	MaxWorkers          = 16
	DefaultFetchRetries = 2
)

// ManagerOptions configures the processing pipeline
type ManagerOptions struct {
	Workers      int
	FetchRetries int
	RetryDelay   time.Duration
	Policy       *HostPolicy
	Recorder     Recorder
}

// Manager orchestrates download -> fit -> enhance -> encode for a batch of search results
type Manager struct {
	client *HTTPClient
	opts   ManagerOptions
}

// BatchResult is the outcome of one Process call. Images keep the order of the
// selection, numbered 1..n over the images that succeeded.
type BatchResult struct {
	Images   []*parser.ProcessedImage
	Failures []*ItemError
}

// NewManager creates a new processing manager
func NewManager(client *HTTPClient, opts ManagerOptions) *Manager {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Workers > MaxWorkers {
		opts.Workers = MaxWorkers
	}
	if opts.FetchRetries < 0 {
		opts.FetchRetries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	return &Manager{client: client, opts: opts}
}

// Workers returns the size of the worker pool
func (m *Manager) Workers() int {
	return m.opts.Workers
}

// Process downloads and reprocesses items on a bounded worker pool.
// A failed item is recorded in BatchResult.Failures and the run carries on.
// When nothing succeeds the partial result comes back with ErrNothingProcessed.
func (m *Manager) Process(ctx context.Context, query string, items []ImageResult, opts parser.ProcessOptions, progress ProgressCallback) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, ErrNothingSelected
	}

	total := len(items)
	slots := make([]*parser.ProcessedImage, total)
	result := &BatchResult{}

	var mu sync.Mutex
	done := 0

	report := func(msg string) {
		if progress != nil {
			progress(msg, done, total)
		}
	}

	mu.Lock()
	report(fmt.Sprintf("Processing %d images with %d workers...", total, m.opts.Workers))
	mu.Unlock()

	log.Printf("[Manager] Processing %d images (%d workers, %dx%d, enhance=%v)",
		total, m.opts.Workers, opts.TargetWidth, opts.TargetHeight, opts.Enhance)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Workers)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			img, err := m.processOne(gctx, i+1, item, opts)
			metrics.ProcessSeconds.Observe(time.Since(start).Seconds())

			mu.Lock()
			defer mu.Unlock()
			done++

			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				itemErr := &ItemError{Index: i + 1, URL: item.URL, Err: err}
				result.Failures = append(result.Failures, itemErr)
				metrics.ImageFailures.Inc()
				log.Printf("[Manager] ✗ %v", itemErr)
				report(fmt.Sprintf("Failed image %d of %d", i+1, total))
				return nil
			}

			slots[i] = img
			metrics.ImagesProcessed.Inc()
			report(fmt.Sprintf("Processed %d of %d images", done, total))
			return nil
		})
	}

	waitErr := g.Wait()

	for _, img := range slots {
		if img != nil {
			img.Index = len(result.Images) + 1
			result.Images = append(result.Images, img)
		}
	}

	if waitErr != nil {
		log.Printf("[Manager] Cancelled after %d of %d images", len(result.Images), total)
		return result, waitErr
	}

	log.Printf("[Manager] Done: %d processed, %d failed", len(result.Images), len(result.Failures))

	if len(result.Images) == 0 {
		return result, ErrNothingProcessed
	}

	if m.opts.Recorder != nil {
		for _, img := range result.Images {
			if err := m.opts.Recorder.RecordProcessed(ctx, query, img); err != nil {
				log.Printf("[Manager] Failed to record %s: %v", img.SourceURL, err)
			}
		}
	}

	return result, nil
}

// processOne handles a single image: politeness wait, fetch with retry, transform
func (m *Manager) processOne(ctx context.Context, index int, item ImageResult, opts parser.ProcessOptions) (*parser.ProcessedImage, error) {
	if m.opts.Policy != nil {
		if err := m.opts.Policy.Wait(ctx, item.URL); err != nil {
			return nil, err
		}
	}

	data, err := m.fetchWithRetry(ctx, item.URL)
	if err != nil {
		return nil, err
	}

	img, err := parser.ProcessImageBytes(data, index, item.URL, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to process image: %w", err)
	}
	return img, nil
}

func (m *Manager) fetchWithRetry(ctx context.Context, imageURL string) ([]byte, error) {
	var lastErr error
	attempts := m.opts.FetchRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * m.opts.RetryDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		data, err := m.client.FetchImage(ctx, imageURL)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryableImageError(err) {
			break
		}
		log.Printf("[Manager] Fetch attempt %d/%d failed for %s: %v", attempt+1, attempts, imageURL, err)
	}

	return nil, lastErr
}

func retryableImageError(err error) bool {
	if errors.Is(err, ErrNotAnImage) || errors.Is(err, ErrBodyTooLarge) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable() || statusErr.StatusCode == 429
	}
	return true
}
