package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gazo/config"
	"gazo/downloader"
	"gazo/models"
)

// ValidateSearch checks the raw search form values and returns the parsed image count.
// It only works with raw values, no Fyne types, so there's no import cycle.
func ValidateSearch(
	term string,
	countText string,
	engineName string,
	catalog *models.EngineCatalog,
	settings config.Settings,
) (int, error) {
	if strings.TrimSpace(term) == "" {
		return 0, errors.New("Please enter a search term.")
	}

	count, err := strconv.Atoi(strings.TrimSpace(countText))
	if err != nil || count < downloader.MinImageCount || count > downloader.MaxImageCount {
		return 0, downloader.ErrCountOutOfRange
	}

	if engineName == "" {
		return 0, errors.New("please select a search engine")
	}
	if catalog == nil {
		return 0, errors.New("engine catalog not loaded")
	}

	engine, ok := catalog.Find(engineName)
	if !ok {
		return 0, errors.New("unknown search engine: " + engineName)
	}

	rules := engine.RequiredFields
	if rules.APIKey && apiKeyFor(engineName, settings) == "" {
		return 0, fmt.Errorf("%s needs an API key, add it in Settings", engine.DisplayName)
	}
	if rules.Endpoint && strings.TrimSpace(settings.SearxngEndpoint) == "" {
		return 0, fmt.Errorf("%s needs an instance URL, add it in Settings", engine.DisplayName)
	}

	return count, nil
}

// ValidateProcess checks a processing request before it is queued
func ValidateProcess(selected, width, height, quality int) error {
	if selected <= 0 {
		return downloader.ErrNothingSelected
	}
	if width <= 0 || height <= 0 {
		return errors.New("target width and height must be positive")
	}
	if width > config.MaxTargetSize || height > config.MaxTargetSize {
		return fmt.Errorf("target size cannot exceed %dx%d", config.MaxTargetSize, config.MaxTargetSize)
	}
	if quality < 1 || quality > 100 {
		return errors.New("JPEG quality must be between 1 and 100")
	}
	return nil
}

// ParseSize reads a custom width or height entry
func ParseSize(text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", text)
	}
	return n, nil
}

func apiKeyFor(engineName string, s config.Settings) string {
	switch engineName {
	case "brave":
		return strings.TrimSpace(s.BraveAPIKey)
	case "serpapi":
		return strings.TrimSpace(s.SerpAPIKey)
	case "searxng":
		return strings.TrimSpace(s.SearxngAPIKey)
	}
	return ""
}
