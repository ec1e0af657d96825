package sites

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"gazo/downloader"
	"gazo/parser"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/images/search"

// BraveEngine uses the Brave Search image API
type BraveEngine struct {
	client   *downloader.HTTPClient
	endpoint string
	apiKey   string
}

var _ downloader.Engine = (*BraveEngine)(nil)

func NewBraveEngine(client *downloader.HTTPClient, apiKey string) *BraveEngine {
	return &BraveEngine{
		client:   client,
		endpoint: braveEndpoint,
		apiKey:   strings.TrimSpace(apiKey),
	}
}

func (b *BraveEngine) Name() string {
	return EngineBrave
}

func (b *BraveEngine) DisplayName() string {
	return "Brave Search API"
}

type braveResponse struct {
	Results []struct {
		Title     string `json:"title"`
		URL       string `json:"url"`
		Thumbnail struct {
			Src string `json:"src"`
		} `json:"thumbnail"`
		Properties struct {
			URL    string `json:"url"`
			Width  int    `json:"width"`
			Height int    `json:"height"`
		} `json:"properties"`
	} `json:"results"`
}

func (b *BraveEngine) Search(ctx context.Context, q downloader.Query) ([]downloader.ImageResult, error) {
	if b.apiKey == "" {
		return nil, NewTypedError(ErrorTypeConfig, fmt.Errorf("brave api key is missing"))
	}

	q = q.Normalize()
	u, err := url.Parse(b.endpoint)
	if err != nil {
		return nil, NewTypedError(ErrorTypeConfig, fmt.Errorf("invalid brave endpoint: %w", err))
	}

	params := u.Query()
	params.Set("q", q.Term)
	params.Set("count", strconv.Itoa(q.Count))
	if q.SafeSearch {
		params.Set("safesearch", "strict")
	} else {
		params.Set("safesearch", "off")
	}
	u.RawQuery = params.Encode()

	var payload braveResponse
	err = b.client.FetchJSON(ctx, u.String(), map[string]string{"X-Subscription-Token": b.apiKey}, &payload)
	if err != nil {
		return nil, wrapError(err)
	}

	results := make([]downloader.ImageResult, 0, q.Count)
	for _, row := range payload.Results {
		link := parser.ResolveLink("", row.Properties.URL)
		if link == "" {
			continue
		}
		results = append(results, downloader.ImageResult{
			URL:          link,
			ThumbnailURL: parser.ResolveLink("", row.Thumbnail.Src),
			Title:        strings.TrimSpace(row.Title),
			SourcePage:   strings.TrimSpace(row.URL),
			Width:        row.Properties.Width,
			Height:       row.Properties.Height,
		})
		if len(results) >= q.Count {
			break
		}
	}

	log.Printf("[Brave] Found %d results for %q", len(results), q.Term)
	return results, nil
}
