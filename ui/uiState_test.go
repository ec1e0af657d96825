package ui

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gazo/config"
	"gazo/downloader"
	"gazo/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState(t *testing.T) *AppState {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	client, err := downloader.NewHTTPClient(downloader.ClientOptions{MaxRetries: 1})
	require.NoError(t, err)
	return NewAppState(nil, nil, config.DefaultSettings(), client, config.NewProcessQueue())
}

func results(n int) []downloader.ImageResult {
	out := make([]downloader.ImageResult, n)
	for i := range out {
		out[i] = downloader.ImageResult{URL: "https://cdn.example.com/" + string(rune('a'+i)) + ".jpg"}
	}
	return out
}

func TestSetResultsClearsSelection(t *testing.T) {
	state := testState(t)

	var changed int
	var counts []int
	state.RegisterResultsChangedCallback(func() { changed++ })
	state.RegisterSelectionChangedCallback(func(n int) { counts = append(counts, n) })

	state.SetResults("lakes", "google", results(3))
	state.SetSelected(2, true)
	state.SetSelected(0, true)
	assert.Equal(t, 2, state.SelectedCount())

	state.SetResults("forests", "bing", results(2))
	assert.Equal(t, 2, changed)
	assert.Equal(t, 0, state.SelectedCount())
	assert.Equal(t, "forests", state.Query())
	assert.Equal(t, "bing", state.Engine())
	assert.Equal(t, []int{0, 1, 2, 0}, counts)
}

func TestSelection(t *testing.T) {
	state := testState(t)
	items := results(4)
	state.SetResults("owls", "google", items)

	state.SetSelected(3, true)
	state.SetSelected(1, true)
	state.SetSelected(9, true)  // out of range
	state.SetSelected(-1, true) // out of range
	assert.True(t, state.IsSelected(1))
	assert.False(t, state.IsSelected(0))

	// result order, not click order
	assert.Equal(t, []downloader.ImageResult{items[1], items[3]}, state.SelectedItems())

	state.SetSelected(1, false)
	assert.Equal(t, []downloader.ImageResult{items[3]}, state.SelectedItems())

	state.SelectAll()
	assert.Equal(t, 4, state.SelectedCount())
	state.SelectNone()
	assert.Empty(t, state.SelectedItems())

	state.ClearResults()
	assert.Empty(t, state.Results())
	assert.Equal(t, "", state.Query())
}

func TestUpdateSettingsPersistsAndNotifies(t *testing.T) {
	state := testState(t)

	notified := false
	state.RegisterSettingsChangedCallback(func() { notified = true })

	updated := state.Settings
	updated.Engine = "Bing"
	updated.JPEGQuality = 500
	require.NoError(t, state.UpdateSettings(updated))

	assert.True(t, notified)
	assert.Equal(t, "bing", state.Settings.Engine)
	assert.Equal(t, 100, state.Settings.JPEGQuality)
	assert.Equal(t, "bing", state.Registry.ResolveFromSettings("", state.Settings))

	dir, err := config.ConfigDirectory()
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "settings.json"))
	assert.NoError(t, err)
}

func TestRerunAndTaskCallbacks(t *testing.T) {
	state := testState(t)

	var rerun string
	state.RegisterRerunCallback(func(query, engine string, count int) {
		rerun = query + "/" + engine
	})
	var shown string
	state.RegisterTaskSelectedCallback(func(task config.ProcessTask) {
		shown = task.ID
	})

	state.Rerun("red fox", "duckduckgo", 12)
	state.SelectTask(config.ProcessTask{ID: "task-1"})

	assert.Equal(t, "red fox/duckduckgo", rerun)
	assert.Equal(t, "task-1", shown)
}

func TestThumbnailCache(t *testing.T) {
	cache := newThumbnailCache()
	url := "https://cdn.example.com/a.jpg"

	_, loaded := cache.get(url)
	assert.False(t, loaded)

	assert.True(t, cache.claim(url))
	assert.False(t, cache.claim(url), "second claim while loading")

	cache.store(url, nil)
	img, loaded := cache.get(url)
	assert.True(t, loaded)
	assert.Nil(t, img)
	assert.False(t, cache.claim(url), "failed loads are not retried")

	other := "https://cdn.example.com/b.jpg"
	require.True(t, cache.claim(other))
	cache.store(other, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	img, _ = cache.get(other)
	assert.NotNil(t, img)
}

func TestRecordTitle(t *testing.T) {
	rec := storage.ImageRecord{
		Query:          "red fox",
		FileName:       "image_2.jpg",
		Format:         "webp",
		Width:          1920,
		Height:         1080,
		OriginalWidth:  640,
		OriginalHeight: 480,
		ProcessedAt:    time.Date(2026, 3, 1, 12, 30, 0, 0, time.Local),
	}

	assert.Equal(t, "red fox · image_2.jpg · 1920x1080 from 640x480 webp · 2026-03-01 12:30", recordTitle(rec))
}

func TestStoreDefaultsToDisabled(t *testing.T) {
	state := testState(t)
	assert.False(t, state.Store.Enabled())
}
