package sites

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"

	"gazo/downloader"
	"gazo/parser"
)

const (
	duckduckgoBaseURL = "https://duckduckgo.com"
	duckduckgoMaxPage = 5
)

var vqdPattern = regexp.MustCompile(`vqd=["']?([\w-]+)["']?`)

// DuckDuckGoEngine uses the JSON endpoint behind DuckDuckGo's image tab.
// The endpoint needs a vqd token that is only handed out on the HTML page.
type DuckDuckGoEngine struct {
	client  *downloader.HTTPClient
	api     *downloader.APIClient
	baseURL string
}

var _ downloader.Engine = (*DuckDuckGoEngine)(nil)

// NewDuckDuckGoEngine creates the engine. The API client must share the HTTP client's
// cookie jar or the token is rejected.
func NewDuckDuckGoEngine(client *downloader.HTTPClient, api *downloader.APIClient) *DuckDuckGoEngine {
	return &DuckDuckGoEngine{client: client, api: api, baseURL: duckduckgoBaseURL}
}

func (d *DuckDuckGoEngine) Name() string {
	return EngineDuckDuckGo
}

func (d *DuckDuckGoEngine) DisplayName() string {
	return "DuckDuckGo"
}

type duckduckgoResponse struct {
	Results []struct {
		Image     string `json:"image"`
		Thumbnail string `json:"thumbnail"`
		Title     string `json:"title"`
		URL       string `json:"url"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"results"`
	Next string `json:"next"`
}

func (d *DuckDuckGoEngine) Search(ctx context.Context, q downloader.Query) ([]downloader.ImageResult, error) {
	q = q.Normalize()

	token, err := d.token(ctx, q.Term)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("l", "us-en")
	params.Set("o", "json")
	params.Set("q", q.Term)
	params.Set("vqd", token)
	params.Set("f", ",,,,,")
	if q.SafeSearch {
		params.Set("p", "1")
	} else {
		params.Set("p", "-1")
	}
	next := d.baseURL + "/i.js?" + params.Encode()
	headers := map[string]string{"Referer": d.baseURL + "/"}

	var results []downloader.ImageResult
	for page := 0; page < duckduckgoMaxPage && next != "" && len(results) < q.Count; page++ {
		var payload duckduckgoResponse
		if err := d.api.FetchJSON(ctx, next, headers, &payload); err != nil {
			if len(results) > 0 {
				log.Printf("[DuckDuckGo] Page %d failed, keeping %d results: %v", page+1, len(results), err)
				break
			}
			return nil, wrapError(err)
		}

		for _, row := range payload.Results {
			link := parser.ResolveLink(d.baseURL, row.Image)
			if link == "" {
				continue
			}
			results = append(results, downloader.ImageResult{
				URL:          link,
				ThumbnailURL: parser.ResolveLink(d.baseURL, row.Thumbnail),
				Title:        strings.TrimSpace(row.Title),
				SourcePage:   strings.TrimSpace(row.URL),
				Width:        row.Width,
				Height:       row.Height,
			})
		}

		next = d.nextURL(payload.Next, token)
	}

	if len(results) > q.Count {
		results = results[:q.Count]
	}
	log.Printf("[DuckDuckGo] Found %d results for %q", len(results), q.Term)
	return results, nil
}

// token fetches the HTML search page and pulls the vqd token out of it
func (d *DuckDuckGoEngine) token(ctx context.Context, term string) (string, error) {
	params := url.Values{}
	params.Set("q", term)
	params.Set("iax", "images")
	params.Set("ia", "images")

	html, err := d.client.FetchHTML(ctx, d.baseURL+"/?"+params.Encode())
	if err != nil {
		return "", wrapError(err)
	}

	m := vqdPattern.FindStringSubmatch(html)
	if len(m) < 2 {
		return "", NewTypedError(ErrorTypeUnknown, fmt.Errorf("duckduckgo search token not found"))
	}
	return m[1], nil
}

// nextURL resolves the relative "next" link and re-attaches the token
func (d *DuckDuckGoEngine) nextURL(next, token string) string {
	if next == "" {
		return ""
	}
	u, err := url.Parse(parser.ResolveLink(d.baseURL+"/", next))
	if err != nil || u.Host == "" {
		return ""
	}
	params := u.Query()
	if params.Get("vqd") == "" {
		params.Set("vqd", token)
	}
	u.RawQuery = params.Encode()
	return u.String()
}
