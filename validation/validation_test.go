package validation

import (
	"testing"

	"gazo/config"
	"gazo/downloader"
	"gazo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() *models.EngineCatalog {
	return &models.EngineCatalog{Engines: []models.EngineInfo{
		{Name: "google", DisplayName: "Google Images"},
		{Name: "brave", DisplayName: "Brave Search API", RequiredFields: models.RequiredFields{APIKey: true}},
		{Name: "searxng", DisplayName: "SearXNG", RequiredFields: models.RequiredFields{Endpoint: true}},
	}}
}

func TestValidateSearch(t *testing.T) {
	s := config.DefaultSettings()

	count, err := ValidateSearch("mountain lake", " 12 ", "google", catalog(), s)
	require.NoError(t, err)
	assert.Equal(t, 12, count)

	_, err = ValidateSearch("   ", "10", "google", catalog(), s)
	assert.EqualError(t, err, "Please enter a search term.")

	for _, bad := range []string{"0", "51", "ten", ""} {
		_, err = ValidateSearch("lake", bad, "google", catalog(), s)
		assert.ErrorIs(t, err, downloader.ErrCountOutOfRange, bad)
	}
	assert.EqualError(t, downloader.ErrCountOutOfRange, "Number of images must be between 1 and 50.")

	_, err = ValidateSearch("lake", "10", "", catalog(), s)
	assert.Error(t, err)
	_, err = ValidateSearch("lake", "10", "altavista", catalog(), s)
	assert.ErrorContains(t, err, "unknown search engine")
	_, err = ValidateSearch("lake", "10", "google", nil, s)
	assert.Error(t, err)
}

func TestValidateSearchRequiredFields(t *testing.T) {
	s := config.DefaultSettings()

	_, err := ValidateSearch("lake", "10", "brave", catalog(), s)
	assert.ErrorContains(t, err, "API key")
	_, err = ValidateSearch("lake", "10", "searxng", catalog(), s)
	assert.ErrorContains(t, err, "instance URL")

	s.BraveAPIKey = "key"
	s.SearxngEndpoint = "http://localhost:8888"
	_, err = ValidateSearch("lake", "10", "brave", catalog(), s)
	assert.NoError(t, err)
	_, err = ValidateSearch("lake", "10", "searxng", catalog(), s)
	assert.NoError(t, err)
}

func TestValidateProcess(t *testing.T) {
	assert.NoError(t, ValidateProcess(3, 1920, 1080, 90))

	err := ValidateProcess(0, 1920, 1080, 90)
	assert.EqualError(t, err, "Please select at least one image to process.")

	assert.Error(t, ValidateProcess(1, 0, 1080, 90))
	assert.Error(t, ValidateProcess(1, 1920, -1, 90))
	assert.Error(t, ValidateProcess(1, 9000, 1080, 90))
	assert.Error(t, ValidateProcess(1, 1920, 1080, 0))
	assert.Error(t, ValidateProcess(1, 1920, 1080, 101))
}

func TestParseSize(t *testing.T) {
	n, err := ParseSize(" 800 ")
	require.NoError(t, err)
	assert.Equal(t, 800, n)

	_, err = ParseSize("wide")
	assert.Error(t, err)
}
