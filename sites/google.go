package sites

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"gazo/downloader"
	"gazo/parser"
)

const googleBaseURL = "https://www.google.com"

// GoogleEngine scrapes the Google Images results page (tbm=isch).
// Full-size URLs live in the script payload; the <img> tags only carry thumbnails.
type GoogleEngine struct {
	executor *downloader.RequestExecutor
	baseURL  string
}

var _ downloader.Engine = (*GoogleEngine)(nil)

func NewGoogleEngine(executor *downloader.RequestExecutor) *GoogleEngine {
	return &GoogleEngine{executor: executor, baseURL: googleBaseURL}
}

func (g *GoogleEngine) Name() string {
	return EngineGoogle
}

func (g *GoogleEngine) DisplayName() string {
	return "Google Images"
}

func (g *GoogleEngine) searchURL(q downloader.Query) string {
	params := url.Values{}
	params.Set("q", q.Term)
	params.Set("tbm", "isch")
	params.Set("hl", "en")
	if q.SafeSearch {
		params.Set("safe", "active")
	}
	return g.baseURL + "/search?" + params.Encode()
}

func (g *GoogleEngine) Search(ctx context.Context, q downloader.Query) ([]downloader.ImageResult, error) {
	q = q.Normalize()
	target := g.searchURL(q)
	base, err := url.Parse(target)
	if err != nil {
		return nil, NewTypedError(ErrorTypeConfig, fmt.Errorf("invalid google url: %w", err))
	}

	html, err := g.executor.FetchHTML(ctx, target, "img")
	if err != nil {
		return nil, wrapError(err)
	}

	candidates := parser.ExtractImageCandidates(html, base, q.Count)

	// the static page sometimes ships without the payload; a rendered page always has it
	if len(candidates) == 0 && g.executor.BrowserEnabled() {
		log.Printf("[Google] No candidates in static HTML, rendering %s", target)
		rendered, err := g.executor.FetchRendered(ctx, target, "img")
		if err != nil {
			return nil, wrapError(err)
		}
		candidates = parser.ExtractImageCandidates(rendered, base, q.Count)
	}

	log.Printf("[Google] Found %d candidates for %q", len(candidates), q.Term)
	return candidatesToResults(candidates, target), nil
}

// candidatesToResults converts scraped candidates, recording the results page as source
func candidatesToResults(candidates []parser.Candidate, page string) []downloader.ImageResult {
	results := make([]downloader.ImageResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, downloader.ImageResult{
			URL:        c.URL,
			SourcePage: page,
			Width:      c.Width,
			Height:     c.Height,
		})
	}
	return results
}
