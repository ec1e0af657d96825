package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"gazo/downloader"
	"gazo/parser"

	"github.com/PuerkitoBio/goquery"
)

const bingBaseURL = "https://www.bing.com"

// BingEngine scrapes Bing Images. Each result anchor (a.iusc) carries its metadata
// as JSON in the "m" attribute.
type BingEngine struct {
	executor *downloader.RequestExecutor
	baseURL  string
}

var _ downloader.Engine = (*BingEngine)(nil)

func NewBingEngine(executor *downloader.RequestExecutor) *BingEngine {
	return &BingEngine{executor: executor, baseURL: bingBaseURL}
}

func (b *BingEngine) Name() string {
	return EngineBing
}

func (b *BingEngine) DisplayName() string {
	return "Bing Images"
}

type bingMeta struct {
	MURL string `json:"murl"` // full-size image
	TURL string `json:"turl"` // thumbnail
	T    string `json:"t"`    // title
	PURL string `json:"purl"` // page the image was found on
}

func (b *BingEngine) Search(ctx context.Context, q downloader.Query) ([]downloader.ImageResult, error) {
	q = q.Normalize()

	params := url.Values{}
	params.Set("q", q.Term)
	params.Set("first", "1")
	params.Set("count", strconv.Itoa(q.Count))
	if q.SafeSearch {
		params.Set("adlt", "strict")
	}
	target := b.baseURL + "/images/search?" + params.Encode()

	html, err := b.executor.FetchHTML(ctx, target, "a.iusc")
	if err != nil {
		return nil, wrapError(err)
	}

	results, err := parseBingResults(html, q.Count)
	if err != nil {
		return nil, NewTypedError(ErrorTypeUnknown, fmt.Errorf("parse bing results failed: %w", err))
	}
	if len(results) > 0 {
		log.Printf("[Bing] Found %d results for %q", len(results), q.Term)
		return results, nil
	}

	// layout changed or a reduced page was served, fall back to generic scraping
	base, _ := url.Parse(target)
	candidates := parser.ExtractImageCandidates(html, base, q.Count)
	log.Printf("[Bing] No iusc anchors, generic scrape found %d candidates", len(candidates))
	return candidatesToResults(candidates, target), nil
}

func parseBingResults(html string, limit int) ([]downloader.ImageResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var results []downloader.ImageResult
	doc.Find("a.iusc[m]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		raw, _ := s.Attr("m")
		var meta bingMeta
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			log.Printf("[Bing] Skipping anchor %d: %v", i, err)
			return true
		}
		link := parser.ResolveLink("", meta.MURL)
		if link == "" {
			return true
		}
		results = append(results, downloader.ImageResult{
			URL:          link,
			ThumbnailURL: parser.ResolveLink("", meta.TURL),
			Title:        strings.TrimSpace(meta.T),
			SourcePage:   parser.ResolveLink("", meta.PURL),
		})
		return limit <= 0 || len(results) < limit
	})
	return results, nil
}
