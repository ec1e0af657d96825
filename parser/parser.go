package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kennygrant/sanitize"
)

const appDirName = "gazo"

// ExpandPath expands ~ to the user's home directory, or returns the path as-is
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return homeDir, nil
		}
		return filepath.Join(homeDir, path[2:]), nil
	}
	return path, nil
}

// ConfigDir returns ~/.config/gazo
func ConfigDir() (string, error) {
	return ExpandPath(filepath.Join("~", ".config", appDirName))
}

// SanitizeFileName turns arbitrary text (a search term, a page title) into a
// lowercase file name stem. Empty results fall back to "image".
func SanitizeFileName(name string) string {
	clean := sanitize.BaseName(strings.TrimSpace(name))
	clean = strings.Trim(strings.ToLower(clean), "-_ ")
	if clean == "" {
		return "image"
	}
	if len(clean) > 80 {
		clean = strings.TrimRight(clean[:80], "-_ ")
	}
	return clean
}

// NextFreeName returns base+ext inside dir, or base_2+ext, base_3+ext ... when taken
func NextFreeName(dir, base, ext string) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	candidate := filepath.Join(dir, base+ext)
	for n := 2; ; n++ {
		_, err := os.Stat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", candidate, err)
		}
		if n > 10000 {
			return "", fmt.Errorf("no free file name for %s%s in %s", base, ext, dir)
		}
		candidate = filepath.Join(dir, base+"_"+strconv.Itoa(n)+ext)
	}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
