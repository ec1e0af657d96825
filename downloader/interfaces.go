package downloader

import (
	"context"
	"strings"

	"gazo/parser"
)

const (
	MinImageCount     = 1
	MaxImageCount     = 50
	DefaultImageCount = 10
)

// Engine is implemented by every image search backend.
// Engines only know how to turn a query into image URLs; fetching and processing
// of the images themselves is handled by the Manager.
type Engine interface {
	// Name returns the registry key (e.g. "google", "searxng")
	Name() string

	// DisplayName returns the label shown in the UI
	DisplayName() string

	// Search returns up to q.Count results, best first
	Search(ctx context.Context, q Query) ([]ImageResult, error)
}

// Query is one image search request
type Query struct {
	Term       string
	Count      int
	SafeSearch bool
}

// Normalize trims the term and clamps Count into 1..50, 0 meaning the default of 10
func (q Query) Normalize() Query {
	q.Term = strings.Join(strings.Fields(q.Term), " ")
	switch {
	case q.Count == 0:
		q.Count = DefaultImageCount
	case q.Count < MinImageCount:
		q.Count = MinImageCount
	case q.Count > MaxImageCount:
		q.Count = MaxImageCount
	}
	return q
}

// ImageResult is one image found by a search engine
type ImageResult struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Title        string `json:"title,omitempty"`
	SourcePage   string `json:"source_page,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

// PreviewURL returns the thumbnail when the engine supplied one, otherwise the full image
func (r ImageResult) PreviewURL() string {
	if r.ThumbnailURL != "" {
		return r.ThumbnailURL
	}
	return r.URL
}

// ProgressCallback is called while a batch is processed.
// Parameters: status message, items finished so far, total items
type ProgressCallback func(message string, done, total int)

// Recorder receives every successfully processed image (e.g. a database sink)
type Recorder interface {
	RecordProcessed(ctx context.Context, query string, img *parser.ProcessedImage) error
}
