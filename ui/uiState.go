package ui

import (
	"log"
	"sort"

	"gazo/config"
	"gazo/downloader"
	"gazo/models"
	"gazo/sites"
	"gazo/storage"

	"fyne.io/fyne/v2"
)

// AppState holds the state shared by the views of the main window.
// Views register callbacks and react when results, the selection or the
// settings change. All methods must be called on the UI goroutine.
type AppState struct {
	// Window is the main application window, needed for dialogs
	Window fyne.Window

	// App creates the secondary windows (settings, history, logs)
	App fyne.App

	Settings config.Settings
	Catalog  models.EngineCatalog
	Registry *sites.Registry
	Client   *downloader.HTTPClient
	Queue    *config.ProcessQueue

	// Store is the optional MongoDB record of processed images, nil or disabled without a URI
	Store *storage.Store

	query    string
	engine   string
	results  []downloader.ImageResult
	selected map[int]bool

	onResultsChanged   []func()
	onSelectionChanged []func(count int)
	onTaskSelected     []func(task config.ProcessTask)
	onSettingsChanged  []func()
	onRerun            []func(query, engine string, count int)
}

// NewAppState creates the state for the main window
func NewAppState(window fyne.Window, app fyne.App, settings config.Settings, client *downloader.HTTPClient, queue *config.ProcessQueue) *AppState {
	return &AppState{
		Window:   window,
		App:      app,
		Settings: settings,
		Catalog:  sites.LoadEngineCatalog(),
		Registry: sites.BuildRegistry(settings, client),
		Client:   client,
		Queue:    queue,
		selected: make(map[int]bool),
	}
}

// SetResults replaces the current search results and clears the selection
func (s *AppState) SetResults(query, engine string, results []downloader.ImageResult) {
	s.query = query
	s.engine = engine
	s.results = results
	s.selected = make(map[int]bool)

	for _, callback := range s.onResultsChanged {
		callback()
	}
	s.notifySelection()
}

// ClearResults drops the current search
func (s *AppState) ClearResults() {
	s.SetResults("", "", nil)
}

// Results returns the current search results
func (s *AppState) Results() []downloader.ImageResult {
	return s.results
}

// Query returns the term of the current search
func (s *AppState) Query() string {
	return s.query
}

// Engine returns the engine that produced the current results
func (s *AppState) Engine() string {
	return s.engine
}

// IsSelected reports whether result i is selected for processing
func (s *AppState) IsSelected(i int) bool {
	return s.selected[i]
}

// SetSelected marks result i for processing
func (s *AppState) SetSelected(i int, selected bool) {
	if i < 0 || i >= len(s.results) || s.selected[i] == selected {
		return
	}
	if selected {
		s.selected[i] = true
	} else {
		delete(s.selected, i)
	}
	s.notifySelection()
}

// SelectAll selects every result
func (s *AppState) SelectAll() {
	for i := range s.results {
		s.selected[i] = true
	}
	s.notifySelection()
}

// SelectNone clears the selection
func (s *AppState) SelectNone() {
	s.selected = make(map[int]bool)
	s.notifySelection()
}

// SelectedCount returns how many results are selected
func (s *AppState) SelectedCount() int {
	return len(s.selected)
}

// SelectedItems returns the selected results in result order
func (s *AppState) SelectedItems() []downloader.ImageResult {
	indexes := make([]int, 0, len(s.selected))
	for i := range s.selected {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	items := make([]downloader.ImageResult, 0, len(indexes))
	for _, i := range indexes {
		items = append(items, s.results[i])
	}
	return items
}

// SelectTask shows a queue task in the gallery
func (s *AppState) SelectTask(task config.ProcessTask) {
	for _, callback := range s.onTaskSelected {
		callback(task)
	}
}

// Rerun asks the search view to repeat a search from history
func (s *AppState) Rerun(query, engine string, count int) {
	for _, callback := range s.onRerun {
		callback(query, engine, count)
	}
}

// UpdateSettings persists new settings and rebuilds the engine registry
// so new credentials take effect on the next search
func (s *AppState) UpdateSettings(settings config.Settings) error {
	settings.Normalize()
	if err := config.SaveSettings(settings); err != nil {
		return err
	}
	s.Settings = settings
	s.Registry = sites.BuildRegistry(settings, s.Client)
	log.Printf("[UI] Settings saved (engine=%s, workers=%d)", settings.Engine, settings.Workers)

	for _, callback := range s.onSettingsChanged {
		callback()
	}
	return nil
}

func (s *AppState) notifySelection() {
	count := len(s.selected)
	for _, callback := range s.onSelectionChanged {
		callback(count)
	}
}

// RegisterResultsChangedCallback is called after every new search
func (s *AppState) RegisterResultsChangedCallback(callback func()) {
	s.onResultsChanged = append(s.onResultsChanged, callback)
}

// RegisterSelectionChangedCallback receives the number of selected results
func (s *AppState) RegisterSelectionChangedCallback(callback func(int)) {
	s.onSelectionChanged = append(s.onSelectionChanged, callback)
}

// RegisterTaskSelectedCallback is called when a queue task is picked
func (s *AppState) RegisterTaskSelectedCallback(callback func(config.ProcessTask)) {
	s.onTaskSelected = append(s.onTaskSelected, callback)
}

// RegisterSettingsChangedCallback is called after settings were saved
func (s *AppState) RegisterSettingsChangedCallback(callback func()) {
	s.onSettingsChanged = append(s.onSettingsChanged, callback)
}

// RegisterRerunCallback is called when a history entry is re-run
func (s *AppState) RegisterRerunCallback(callback func(query, engine string, count int)) {
	s.onRerun = append(s.onRerun, callback)
}
