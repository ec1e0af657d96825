package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"gazo/challenge"
	"gazo/downloader"
	"gazo/history"
	"gazo/sites"
	"gazo/validation"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// SearchView is the "Search" card: term, engine and image count.
// A search runs in the background and fills the results grid when done.
type SearchView struct {
	Card fyne.CanvasObject

	termEntry    *widget.Entry
	engineSelect *widget.Select
	countEntry   *widget.Entry
	searchButton *widget.Button
	clearButton  *widget.Button
	spinner      *widget.ProgressBarInfinite
	statusLabel  *widget.Label

	state  *AppState
	cancel context.CancelFunc
}

// NewSearchView creates the search form
func NewSearchView(state *AppState) *SearchView {
	view := &SearchView{state: state}

	view.termEntry = widget.NewEntry()
	view.termEntry.SetPlaceHolder("e.g. mountain lake at dawn")
	view.termEntry.OnSubmitted = func(string) {
		view.onSearch()
	}

	view.engineSelect = widget.NewSelect(state.Catalog.DisplayNames(), nil)
	view.engineSelect.PlaceHolder = "Select an engine..."
	view.selectConfiguredEngine()

	view.countEntry = widget.NewEntry()
	view.countEntry.SetText(strconv.Itoa(state.Settings.ImageCount))
	view.countEntry.OnSubmitted = func(string) {
		view.onSearch()
	}

	view.searchButton = widget.NewButton("Search", func() {
		view.onSearch()
	})
	view.searchButton.Importance = widget.HighImportance

	view.clearButton = widget.NewButton("Clear", func() {
		view.onClear()
	})

	view.spinner = widget.NewProgressBarInfinite()
	view.spinner.Stop()
	view.spinner.Hide()

	view.statusLabel = widget.NewLabel("")
	view.statusLabel.Wrapping = fyne.TextWrapWord

	form := container.NewVBox(
		widget.NewLabel("Search term:"),
		view.termEntry,
		widget.NewLabel("Engine:"),
		view.engineSelect,
		NewFormRow(fmt.Sprintf("Images (%d-%d):", downloader.MinImageCount, downloader.MaxImageCount), view.countEntry),
		container.NewGridWithColumns(2, view.clearButton, view.searchButton),
		view.spinner,
		view.statusLabel,
	)

	view.Card = NewCard(NewSection("Search", nil, form))

	state.RegisterSettingsChangedCallback(func() {
		view.selectConfiguredEngine()
	})
	state.RegisterRerunCallback(func(query, engine string, count int) {
		view.termEntry.SetText(query)
		if info, ok := state.Catalog.Find(engine); ok {
			view.engineSelect.SetSelected(info.DisplayName)
		}
		if count > 0 {
			view.countEntry.SetText(strconv.Itoa(count))
		}
		view.onSearch()
	})

	return view
}

// selectConfiguredEngine preselects the engine the settings resolve to
func (v *SearchView) selectConfiguredEngine() {
	name := v.state.Registry.ResolveFromSettings("", v.state.Settings)
	if info, ok := v.state.Catalog.Find(name); ok {
		v.engineSelect.SetSelected(info.DisplayName)
	}
}

func (v *SearchView) onSearch() {
	engineName := v.state.Catalog.NameForDisplay(v.engineSelect.Selected)

	count, err := validation.ValidateSearch(
		v.termEntry.Text,
		v.countEntry.Text,
		engineName,
		&v.state.Catalog,
		v.state.Settings,
	)
	if err != nil {
		dialog.ShowInformation("Search", err.Error(), v.state.Window)
		return
	}

	engine, ok := v.state.Registry.Get(engineName)
	if !ok {
		dialog.ShowError(fmt.Errorf("search engine %q is not available", engineName), v.state.Window)
		return
	}

	query := downloader.Query{
		Term:       v.termEntry.Text,
		Count:      count,
		SafeSearch: v.state.Settings.SafeSearch,
	}.Normalize()

	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel

	v.setBusy(true, fmt.Sprintf("Searching %s for %q...", engine.DisplayName(), query.Term))
	log.Printf("[UI] Search %q on %s (count=%d)", query.Term, engineName, query.Count)

	go func() {
		results, err := downloader.SearchImages(ctx, engine, query)
		if errors.Is(err, context.Canceled) {
			return
		}

		fyne.Do(func() {
			v.setBusy(false, "")
			if err != nil {
				v.showSearchError(err)
				return
			}
			v.state.SetResults(query.Term, engineName, results)
			v.statusLabel.SetText(fmt.Sprintf("Found %d images with %s", len(results), engine.DisplayName()))
		})

		if err == nil {
			urls := make([]string, len(results))
			for i, r := range results {
				urls[i] = r.URL
			}
			if _, err := history.Record(query.Term, engineName, query.Count, urls); err != nil {
				log.Printf("[UI] Failed to record search history: %v", err)
			}
		}
	}()
}

func (v *SearchView) showSearchError(err error) {
	log.Printf("[UI] Search failed: %v", err)

	if chErr, ok := challenge.IsChallenge(err); ok {
		v.statusLabel.SetText(fmt.Sprintf("Blocked by %s page", chErr.Kind))
		ShowChallengeDialog(v.state.Window, chErr)
		return
	}
	if errors.Is(err, downloader.ErrNoResults) {
		v.statusLabel.SetText(err.Error())
		dialog.ShowInformation("Search", err.Error(), v.state.Window)
		return
	}

	v.statusLabel.SetText("Search failed")
	dialog.ShowError(errors.New(sites.Explain(err)), v.state.Window)
}

func (v *SearchView) onClear() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.setBusy(false, "")
	v.termEntry.SetText("")
	v.state.ClearResults()
}

func (v *SearchView) setBusy(busy bool, message string) {
	v.statusLabel.SetText(message)
	if busy {
		v.searchButton.Disable()
		v.spinner.Show()
		v.spinner.Start()
		return
	}
	v.searchButton.Enable()
	v.spinner.Stop()
	v.spinner.Hide()
}
