package sites

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"gazo/downloader"
	"gazo/parser"
)

var resolutionPattern = regexp.MustCompile(`(\d+)\s*[x×]\s*(\d+)`)

// SearxngEngine queries a self-hosted SearXNG instance. The instance must have the
// json output format enabled.
type SearxngEngine struct {
	client   *downloader.HTTPClient
	endpoint string
	apiKey   string
}

var _ downloader.Engine = (*SearxngEngine)(nil)

func NewSearxngEngine(client *downloader.HTTPClient, endpoint, apiKey string) *SearxngEngine {
	return &SearxngEngine{
		client:   client,
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
	}
}

func (s *SearxngEngine) Name() string {
	return EngineSearxng
}

func (s *SearxngEngine) DisplayName() string {
	return "SearXNG"
}

type searxngResponse struct {
	Results []struct {
		ImgSrc       string `json:"img_src"`
		ThumbnailSrc string `json:"thumbnail_src"`
		Title        string `json:"title"`
		URL          string `json:"url"`
		Resolution   string `json:"resolution"`
	} `json:"results"`
}

func (s *SearxngEngine) Search(ctx context.Context, q downloader.Query) ([]downloader.ImageResult, error) {
	if s.endpoint == "" {
		return nil, NewTypedError(ErrorTypeConfig, fmt.Errorf("searxng endpoint is missing"))
	}

	q = q.Normalize()
	u, err := url.Parse(s.endpoint)
	if err != nil || u.Host == "" {
		return nil, NewTypedError(ErrorTypeConfig, fmt.Errorf("invalid searxng endpoint %q", s.endpoint))
	}
	if strings.TrimSpace(u.Path) == "" || strings.TrimSpace(u.Path) == "/" {
		u.Path = "/search"
	}

	params := u.Query()
	params.Set("q", q.Term)
	params.Set("format", "json")
	params.Set("categories", "images")
	params.Set("pageno", "1")
	if q.SafeSearch {
		params.Set("safesearch", "2")
	} else {
		params.Set("safesearch", "0")
	}
	u.RawQuery = params.Encode()

	headers := map[string]string{}
	if s.apiKey != "" {
		headers["Authorization"] = "Bearer " + s.apiKey
	}

	var payload searxngResponse
	if err := s.client.FetchJSON(ctx, u.String(), headers, &payload); err != nil {
		return nil, wrapError(err)
	}

	results := make([]downloader.ImageResult, 0, q.Count)
	for _, row := range payload.Results {
		link := parser.ResolveLink(u.String(), row.ImgSrc)
		if link == "" {
			continue
		}
		w, h := parseResolution(row.Resolution)
		results = append(results, downloader.ImageResult{
			URL:          link,
			ThumbnailURL: parser.ResolveLink(u.String(), row.ThumbnailSrc),
			Title:        strings.TrimSpace(row.Title),
			SourcePage:   strings.TrimSpace(row.URL),
			Width:        w,
			Height:       h,
		})
		if len(results) >= q.Count {
			break
		}
	}

	log.Printf("[SearXNG] Found %d results for %q", len(results), q.Term)
	return results, nil
}

// parseResolution reads "1920x1080" or "1920 x 1080"
func parseResolution(s string) (int, int) {
	m := resolutionPattern.FindStringSubmatch(s)
	if len(m) < 3 {
		return 0, 0
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	return w, h
}
