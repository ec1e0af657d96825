package challenge

import (
	"fmt"
	"log"
	"net/url"
	"os/exec"
	"runtime"
)

// OpenInBrowser opens the given URL in the user's default browser
func OpenInBrowser(target string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	case "darwin":
		cmd = exec.Command("open", target)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", target)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	log.Printf("[Challenge] Opening URL in browser: %s", target)
	return cmd.Start()
}

// ChallengeURL picks the page the user should solve in a real browser.
// Relative form actions and meta redirects are resolved against originalURL.
func ChallengeURL(info *Info, originalURL string) string {
	if info == nil {
		return originalURL
	}

	// an engine redirect (Google /sorry/, consent.*) is the page to solve
	if info.RedirectURL != "" && info.RedirectURL != originalURL {
		return info.RedirectURL
	}

	for _, candidate := range []string{info.MetaRedirect, info.FormAction} {
		if candidate == "" {
			continue
		}
		if abs := absolute(originalURL, candidate); abs != "" {
			return abs
		}
	}

	return originalURL
}

func absolute(base, ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return ""
	}
	return b.ResolveReference(r).String()
}
