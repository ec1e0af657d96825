package sites

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"gazo/downloader"
	"gazo/parser"
)

const serpapiEndpoint = "https://serpapi.com/search.json"

// SerpAPIEngine fetches Google Images results through SerpApi
type SerpAPIEngine struct {
	client   *downloader.HTTPClient
	endpoint string
	apiKey   string
}

var _ downloader.Engine = (*SerpAPIEngine)(nil)

func NewSerpAPIEngine(client *downloader.HTTPClient, apiKey string) *SerpAPIEngine {
	return &SerpAPIEngine{
		client:   client,
		endpoint: serpapiEndpoint,
		apiKey:   strings.TrimSpace(apiKey),
	}
}

func (s *SerpAPIEngine) Name() string {
	return EngineSerpAPI
}

func (s *SerpAPIEngine) DisplayName() string {
	return "SerpApi"
}

type serpapiResponse struct {
	Error         string `json:"error"`
	ImagesResults []struct {
		Original       string `json:"original"`
		Thumbnail      string `json:"thumbnail"`
		Title          string `json:"title"`
		Link           string `json:"link"`
		OriginalWidth  int    `json:"original_width"`
		OriginalHeight int    `json:"original_height"`
	} `json:"images_results"`
}

func (s *SerpAPIEngine) Search(ctx context.Context, q downloader.Query) ([]downloader.ImageResult, error) {
	if s.apiKey == "" {
		return nil, NewTypedError(ErrorTypeConfig, fmt.Errorf("serpapi api key is missing"))
	}

	q = q.Normalize()
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, NewTypedError(ErrorTypeConfig, fmt.Errorf("invalid serpapi endpoint: %w", err))
	}

	params := u.Query()
	params.Set("engine", "google_images")
	params.Set("q", q.Term)
	params.Set("api_key", s.apiKey)
	if q.SafeSearch {
		params.Set("safe", "active")
	} else {
		params.Set("safe", "off")
	}
	u.RawQuery = params.Encode()

	var payload serpapiResponse
	if err := s.client.FetchJSON(ctx, u.String(), nil, &payload); err != nil {
		return nil, wrapError(err)
	}
	if strings.TrimSpace(payload.Error) != "" && len(payload.ImagesResults) == 0 {
		// SerpApi reports "no results" the same way as a bad key
		if strings.Contains(strings.ToLower(payload.Error), "hasn't returned any results") {
			return nil, nil
		}
		return nil, NewTypedError(ErrorTypeConfig, fmt.Errorf("serpapi: %s", payload.Error))
	}

	results := make([]downloader.ImageResult, 0, q.Count)
	for _, row := range payload.ImagesResults {
		link := parser.ResolveLink("", row.Original)
		if link == "" {
			continue
		}
		results = append(results, downloader.ImageResult{
			URL:          link,
			ThumbnailURL: parser.ResolveLink("", row.Thumbnail),
			Title:        strings.TrimSpace(row.Title),
			SourcePage:   strings.TrimSpace(row.Link),
			Width:        row.OriginalWidth,
			Height:       row.OriginalHeight,
		})
		if len(results) >= q.Count {
			break
		}
	}

	log.Printf("[SerpApi] Found %d results for %q", len(results), q.Term)
	return results, nil
}
