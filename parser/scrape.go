package parser

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Candidate is one image URL found on a results page. Width and Height are only
// known when the page payload carries them.
type Candidate struct {
	URL    string
	Width  int
	Height int

	payload bool
}

var (
	// ["https://example.com/a.jpg",1080,1920] as found in Google result payloads (url, height, width)
	payloadArrayPattern = regexp.MustCompile(`\["(https?://[^"]+?)",(\d+),(\d+)\]`)
	ouPattern           = regexp.MustCompile(`"ou":"(https?://[^"]+?)"`)
	murlPattern         = regexp.MustCompile(`"murl":"(https?://[^"]+?)"`)
	imgurlPattern       = regexp.MustCompile(`[?&]imgurl=(https?[^&"'\s]+)`)

	thumbnailHostPattern = regexp.MustCompile(`^(encrypted-tbn\d*\.gstatic\.com|tse\d*\.mm\.bing\.net)$`)

	escapeReplacer = strings.NewReplacer(
		`\u003d`, "=",
		`\u0026`, "&",
		`\x3d`, "=",
		`\x26`, "&",
		`\/`, "/",
	)
)

// schemes we refuse to fetch
var badScheme = map[string]struct{}{
	"mailto":     {},
	"javascript": {},
	"tel":        {},
	"data":       {},
	"blob":       {},
}

// lazy loading attributes, in preference order
var imgAttrs = []string{"data-iurl", "data-src", "data-lazy-src", "data-original", "src"}

// chromeRule matches engine page furniture (logos, sprites, nav icons) by host and path prefix.
// A host starting with "." matches any subdomain.
type chromeRule struct {
	host   string
	prefix string
}

var chromeRules = []chromeRule{
	{"www.google.com", "/images/branding/"},
	{"www.google.com", "/logos/"},
	{"www.google.com", "/images/nav_logo"},
	{".gstatic.com", "/images/branding/"},
	{"ssl.gstatic.com", "/gb/images/"},
	{"www.bing.com", "/rp/"},
	{"www.bing.com", "/sa/simg/"},
	{"r.bing.com", "/rp/"},
	{"duckduckgo.com", "/assets/"},
	{"external-content.duckduckgo.com", "/ip3/"},
}

var imageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
	".tiff": {},
	".avif": {},
}

// ExtractImageURLs returns candidate image URLs from a search results page.
// Script payload matches come first, then <img> tags, then og:image.
// A limit <= 0 means unlimited.
func ExtractImageURLs(page string, base *url.URL, limit int) []string {
	candidates := ExtractImageCandidates(page, base, limit)
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.URL)
	}
	return out
}

// ExtractImageCandidates is ExtractImageURLs keeping any payload dimensions
func ExtractImageCandidates(page string, base *url.URL, limit int) []Candidate {
	baseStr := ""
	if base != nil {
		baseStr = base.String()
	}

	var raw []Candidate
	raw = append(raw, payloadCandidates(page)...)
	raw = append(raw, tagCandidates(page)...)

	seen := make(map[string]struct{}, len(raw))
	var payload, likely, other, thumbs []Candidate

	for _, c := range raw {
		abs := ResolveLink(baseStr, c.URL)
		if abs == "" {
			continue
		}
		// payload URLs are results whatever their name, only page tags can be chrome
		if !c.payload && isEngineChrome(abs) {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		c.URL = abs

		switch {
		case isThumbnailHost(abs):
			thumbs = append(thumbs, c)
		case c.payload:
			payload = append(payload, c)
		case IsLikelyImageURL(abs):
			likely = append(likely, c)
		default:
			other = append(other, c)
		}
	}

	// engine thumbnails are only worth returning when nothing better exists
	result := append(append(payload, likely...), other...)
	if len(result) == 0 {
		result = thumbs
	}

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func payloadCandidates(page string) []Candidate {
	decoded := html.UnescapeString(escapeReplacer.Replace(page))
	var out []Candidate

	for _, m := range payloadArrayPattern.FindAllStringSubmatch(decoded, -1) {
		h, _ := strconv.Atoi(m[2])
		w, _ := strconv.Atoi(m[3])
		out = append(out, Candidate{URL: m[1], Width: w, Height: h, payload: true})
	}
	for _, m := range ouPattern.FindAllStringSubmatch(decoded, -1) {
		out = append(out, Candidate{URL: m[1], payload: true})
	}
	for _, m := range murlPattern.FindAllStringSubmatch(decoded, -1) {
		out = append(out, Candidate{URL: m[1], payload: true})
	}
	for _, m := range imgurlPattern.FindAllStringSubmatch(decoded, -1) {
		u, err := url.QueryUnescape(m[1])
		if err != nil {
			continue
		}
		out = append(out, Candidate{URL: u, payload: true})
	}
	return out
}

func tagCandidates(page string) []Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var out []Candidate
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if isTrackingPixel(s) {
			return
		}
		for _, attr := range imgAttrs {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
				out = append(out, Candidate{URL: strings.TrimSpace(v)})
				return
			}
		}
		if srcset, ok := s.Attr("srcset"); ok {
			if first := firstSrcset(srcset); first != "" {
				out = append(out, Candidate{URL: first})
			}
		}
	})

	doc.Find(`meta[property="og:image"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok {
			out = append(out, Candidate{URL: strings.TrimSpace(v)})
		}
	})
	return out
}

func firstSrcset(srcset string) string {
	first := strings.TrimSpace(strings.Split(srcset, ",")[0])
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ResolveLink converts a raw image reference into an absolute URL string.
// It returns "" if the link should be ignored.
func ResolveLink(base, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return ""
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	if ref.Scheme != "" {
		scheme := strings.ToLower(ref.Scheme)
		if _, bad := badScheme[scheme]; bad {
			return ""
		}
		if scheme != "http" && scheme != "https" {
			return ""
		}
	}

	abs := ref
	if !ref.IsAbs() {
		bu, err := url.Parse(base)
		if err != nil || bu.Host == "" {
			return ""
		}
		abs = bu.ResolveReference(ref)
	}
	if abs.Host == "" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

// IsLikelyImageURL reports whether u looks like a direct image link
func IsLikelyImageURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return false
	}
	if _, ok := imageExts[strings.ToLower(path.Ext(parsed.Path))]; ok {
		return true
	}
	if isThumbnailHost(u) {
		return true
	}
	q := parsed.Query()
	for _, key := range []string{"format", "fm", "ext"} {
		if _, ok := imageExts["."+strings.ToLower(q.Get(key))]; ok {
			return true
		}
	}
	return false
}

func isThumbnailHost(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return thumbnailHostPattern.MatchString(strings.ToLower(parsed.Hostname()))
}

func isEngineChrome(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	p := strings.ToLower(parsed.Path)
	if p == "/favicon.ico" {
		return true
	}
	for _, rule := range chromeRules {
		hostMatch := host == rule.host
		if strings.HasPrefix(rule.host, ".") {
			hostMatch = strings.HasSuffix(host, rule.host)
		}
		if hostMatch && strings.HasPrefix(p, rule.prefix) {
			return true
		}
	}
	return false
}

// isTrackingPixel reports an <img> that declares itself 1x1 or smaller
func isTrackingPixel(s *goquery.Selection) bool {
	w, wok := dimensionAttr(s, "width")
	h, hok := dimensionAttr(s, "height")
	return wok && hok && w <= 1 && h <= 1
}

func dimensionAttr(s *goquery.Selection, name string) (int, bool) {
	v, ok := s.Attr(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if err != nil {
		return 0, false
	}
	return n, true
}
