package challenge

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/gocolly/colly"
)

// Kind names the type of block page a search engine served
type Kind string

const (
	KindNone       Kind = "none"
	KindCaptcha    Kind = "captcha"
	KindConsent    Kind = "consent"
	KindCloudflare Kind = "cloudflare"
	KindRateLimit  Kind = "ratelimit"
	KindBlocked    Kind = "blocked"
)

type Info struct {
	StatusCode int
	Kind       Kind
	Reason     string
	Indicators []string

	// Extracted fields
	RedirectURL  string // final URL when the engine redirected (e.g. /sorry/ or consent page)
	MetaRedirect string
	FormAction   string
	Server       string
	RayID        string
}

var (
	justAMomentRe  = regexp.MustCompile(`(?i)<title[^>]*>[^<]*just a moment[^<]*</title>`)
	captchaFormRe  = regexp.MustCompile(`(?i)<form[^>]*(captcha|/sorry/)[^>]*>`)
	challengeTagRe = regexp.MustCompile(`(?i)<(?:form|div)[^>]*(?:id|class)="(challenge-form|challenge-stage|cf-turnstile|g-recaptcha|h-captcha)"`)
	formActionRe   = regexp.MustCompile(`<form[^>]+action="([^"]+)"`)
	metaRedirectRe = regexp.MustCompile(`(?i)<meta[^>]+http-equiv="refresh"[^>]+url=([^">]+)`)
)

// strong Cloudflare markers, each alone is a challenge
var cloudflareChecks = map[string]string{
	"cloudflare-browser-verification": "JS browser verification challenge",
	"challenge-form":                  "Cloudflare challenge form",
	"cf-chl-":                         "Cloudflare challenge token",
	"attention required":              "Cloudflare BIC",
	"checking your browser":           "Cloudflare browser check",
	"cf-turnstile":                    "Turnstile CAPTCHA",
}

var captchaChecks = map[string]string{
	"our systems have detected unusual traffic": "Google unusual traffic notice",
	"g-recaptcha":                               "reCAPTCHA widget",
	"h-captcha":                                 "hCaptcha widget",
	"verify you are human":                      "human verification prompt",
	"please solve the challenge below":          "Bing challenge prompt",
}

// Detect inspects the HTTP response and determines whether the engine served a
// block page (captcha, consent wall, Cloudflare challenge or rate limit) instead of results.
// The body is restored so the caller can still read it.
func Detect(resp *http.Response) (bool, *Info, error) {
	if resp == nil {
		return false, nil, nil
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, nil, err
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))

	body := strings.ToLower(string(bodyBytes))

	info := &Info{
		StatusCode: resp.StatusCode,
		Kind:       KindNone,
		Indicators: []string{},
		Server:     resp.Header.Get("Server"),
		RayID:      resp.Header.Get("CF-Ray"),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		info.RedirectURL = resp.Request.URL.String()
	}

	headers := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	preview := string(bodyBytes)
	if len(preview) > 500 {
		preview = preview[:500]
	}
	logResponse(resp.StatusCode, len(bodyBytes), headers, preview)

	add := func(kind Kind, indicator string) {
		info.Indicators = append(info.Indicators, indicator)
		if info.Kind == KindNone {
			info.Kind = kind
		}
		logDebug("  Indicator (%s): %s", kind, indicator)
	}

	// Redirect based detection
	if resp.Request != nil && resp.Request.URL != nil {
		u := resp.Request.URL
		if strings.HasPrefix(u.Path, "/sorry/") {
			add(KindCaptcha, "redirected to /sorry/ page")
		}
		if strings.HasPrefix(strings.ToLower(u.Host), "consent.") {
			add(KindConsent, "redirected to consent page")
		}
	}

	// Structural markers: headers and challenge markup. An echoed query is escaped
	// text and cannot produce these.
	cloudflareServer := strings.Contains(strings.ToLower(info.Server), "cloudflare")
	if strings.EqualFold(resp.Header.Get("Cf-Mitigated"), "challenge") {
		add(KindCloudflare, "cf-mitigated: challenge header")
	}
	isJSON := strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "json")
	if !isJSON {
		if captchaFormRe.MatchString(body) {
			add(KindCaptcha, "captcha form")
		}
		if m := challengeTagRe.FindStringSubmatch(body); len(m) > 1 {
			switch m[1] {
			case "g-recaptcha", "h-captcha":
				add(KindCaptcha, m[1]+" widget markup")
			default:
				add(KindCloudflare, m[1]+" markup")
			}
		}
	}

	// Result pages repeat the query in their title and search box, so on a 200 the
	// wording only counts next to a structural marker. JSON bodies are never checked.
	if !isJSON && (resp.StatusCode != http.StatusOK || info.Kind != KindNone) {
		detectText(body, add)
		if strings.Contains(body, "/cdn-cgi/challenge-platform/") && info.Kind == KindCloudflare {
			// the JSD script is on plenty of normal pages, only count it next to a strong signal
			info.Indicators = append(info.Indicators, "Cloudflare challenge JS")
		}
	}

	// Status based detection
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		add(KindRateLimit, "429 Too Many Requests")
	case http.StatusForbidden:
		add(KindBlocked, "403 Forbidden")
	case http.StatusServiceUnavailable:
		// a bare 503 is an upstream error, only a challenge from Cloudflare
		if cloudflareServer {
			add(KindCloudflare, "503 from Cloudflare")
		}
	}

	if info.Kind == KindNone {
		logDetection(nil)
		return false, nil, nil
	}

	if m := formActionRe.FindStringSubmatch(string(bodyBytes)); len(m) > 1 {
		info.FormAction = m[1]
	}
	if m := metaRedirectRe.FindStringSubmatch(string(bodyBytes)); len(m) > 1 {
		info.MetaRedirect = strings.Trim(m[1], `'" `)
	}

	info.Reason = describe(info.Kind)
	logDetection(info)
	return true, info, nil
}

func detectText(body string, add func(Kind, string)) {
	if justAMomentRe.MatchString(body) {
		add(KindCloudflare, "Cloudflare challenge page")
	}
	for substr, reason := range cloudflareChecks {
		if strings.Contains(body, substr) {
			add(KindCloudflare, reason)
		}
	}
	for substr, reason := range captchaChecks {
		if strings.Contains(body, substr) {
			add(KindCaptcha, reason)
		}
	}
	if strings.Contains(body, "before you continue") && strings.Contains(body, "consent") {
		add(KindConsent, "consent interstitial")
	}
}

// DetectFromColly wraps Detect so it can be used directly with colly collectors
func DetectFromColly(r *colly.Response) (bool, *Info, error) {
	if r == nil {
		return false, nil, nil
	}

	httpResp := &http.Response{
		StatusCode: r.StatusCode,
		Body:       io.NopCloser(bytes.NewReader(r.Body)),
		Header:     make(http.Header),
	}
	if r.Headers != nil {
		httpResp.Header = r.Headers.Clone()
	}
	if r.Request != nil && r.Request.URL != nil {
		httpResp.Request = &http.Request{URL: r.Request.URL}
	}

	return Detect(httpResp)
}

func describe(kind Kind) string {
	switch kind {
	case KindCaptcha:
		return "search engine asked for a captcha"
	case KindConsent:
		return "search engine showed a cookie consent page"
	case KindCloudflare:
		return "Cloudflare anti-bot challenge detected"
	case KindRateLimit:
		return "search engine rate limited the request"
	case KindBlocked:
		return "search engine refused the request"
	}
	return ""
}
