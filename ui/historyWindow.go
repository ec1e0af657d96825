package ui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gazo/history"
	"gazo/storage"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

const (
	recentProcessedLimit = 200
	recentProcessedWait  = 10 * time.Second
)

// ShowHistoryWindow lists past searches. A search can be run again or deleted.
// With MongoDB configured a second tab lists recently processed images.
func ShowHistoryWindow(state *AppState) {
	historyWindow := state.App.NewWindow("gazo Search History")
	historyWindow.Resize(fyne.NewSize(800, 600))

	var allEntries []history.Entry
	var shown []history.Entry
	selected := -1

	searchEntry := widget.NewEntry()
	searchEntry.SetPlaceHolder("Filter history...")

	infoLabel := widget.NewLabel("Loading history...")

	list := widget.NewList(
		func() int {
			return len(shown)
		},
		func() fyne.CanvasObject {
			queryLabel := widget.NewLabel("query")
			queryLabel.TextStyle.Bold = true
			queryLabel.Truncation = fyne.TextTruncateEllipsis
			detailLabel := widget.NewLabel("details")
			return container.NewVBox(queryLabel, detailLabel)
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			if id >= len(shown) {
				return
			}
			e := shown[id]
			box := item.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(e.Query)
			box.Objects[1].(*widget.Label).SetText(fmt.Sprintf("%s · %d images · %s",
				engineDisplayName(state, e.Engine), e.Count, e.SearchedAt.Local().Format("2006-01-02 15:04")))
		},
	)

	rerunButton := widget.NewButton("Search Again", nil)
	deleteButton := widget.NewButton("Delete", nil)
	rerunButton.Disable()
	deleteButton.Disable()

	applyFilter := func() {
		query := strings.ToLower(strings.TrimSpace(searchEntry.Text))
		shown = shown[:0]
		for _, e := range allEntries {
			if query == "" || strings.Contains(strings.ToLower(e.Query), query) {
				shown = append(shown, e)
			}
		}
		selected = -1
		list.UnselectAll()
		rerunButton.Disable()
		deleteButton.Disable()
		list.Refresh()
		infoLabel.SetText(fmt.Sprintf("%d of %d searches", len(shown), len(allEntries)))
	}

	reload := func() {
		h, err := history.Load()
		if err != nil {
			infoLabel.SetText(fmt.Sprintf("Failed to load history: %v", err))
			return
		}
		allEntries = h.Entries
		applyFilter()
	}

	list.OnSelected = func(id widget.ListItemID) {
		selected = id
		rerunButton.Enable()
		deleteButton.Enable()
	}

	rerunButton.OnTapped = func() {
		if selected < 0 || selected >= len(shown) {
			return
		}
		e := shown[selected]
		log.Printf("[UI] Re-running %q on %s from history", e.Query, e.Engine)
		historyWindow.Close()
		state.Rerun(e.Query, e.Engine, e.Count)
	}

	deleteButton.OnTapped = func() {
		if selected < 0 || selected >= len(shown) {
			return
		}
		e := shown[selected]
		dialog.ShowConfirm("Delete", fmt.Sprintf("Remove %q from the history?", e.Query), func(ok bool) {
			if !ok {
				return
			}
			if err := history.Delete(e.ID); err != nil {
				dialog.ShowError(err, historyWindow)
				return
			}
			reload()
		}, historyWindow)
	}

	searchEntry.OnChanged = func(string) {
		applyFilter()
	}

	exportButton := widget.NewButton("Export", func() {
		ShowExportHistoryDialog(historyWindow)
	})
	importButton := widget.NewButton("Import", func() {
		ShowImportHistoryDialog(historyWindow, reload)
	})

	top := container.NewVBox(searchEntry, infoLabel)
	bottom := container.NewVBox(
		widget.NewSeparator(),
		container.NewCenter(container.NewHBox(rerunButton, deleteButton, exportButton, importButton)),
	)

	searches := container.NewBorder(top, bottom, nil, nil, list)
	if state.Store.Enabled() {
		tabs := container.NewAppTabs(
			container.NewTabItem("Searches", searches),
			container.NewTabItem("Processed Images", newProcessedView(state.Store, historyWindow)),
		)
		historyWindow.SetContent(tabs)
	} else {
		historyWindow.SetContent(searches)
	}
	historyWindow.Show()

	reload()
}

func engineDisplayName(state *AppState, name string) string {
	if info, ok := state.Catalog.Find(name); ok {
		return info.DisplayName
	}
	return name
}

// newProcessedView lists the most recent records from the image store
func newProcessedView(store *storage.Store, parent fyne.Window) fyne.CanvasObject {
	var records []storage.ImageRecord
	selected := -1

	infoLabel := widget.NewLabel("Loading processed images...")

	list := widget.NewList(
		func() int {
			return len(records)
		},
		func() fyne.CanvasObject {
			title := widget.NewLabel("title")
			title.TextStyle.Bold = true
			title.Truncation = fyne.TextTruncateEllipsis
			source := widget.NewLabel("source")
			source.Truncation = fyne.TextTruncateEllipsis
			return container.NewVBox(title, source)
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			if id >= len(records) {
				return
			}
			box := item.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(recordTitle(records[id]))
			box.Objects[1].(*widget.Label).SetText(records[id].SourceURL)
		},
	)

	copyButton := widget.NewButton("Copy Source URL", func() {
		if selected < 0 || selected >= len(records) {
			return
		}
		if err := copyToClipboard(records[selected].SourceURL); err != nil {
			dialog.ShowError(err, parent)
		}
	})
	copyButton.Disable()

	list.OnSelected = func(id widget.ListItemID) {
		selected = id
		copyButton.Enable()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recentProcessedWait)
		defer cancel()

		recent, err := store.Recent(ctx, recentProcessedLimit)
		fyne.Do(func() {
			if err != nil {
				log.Printf("[UI] Failed to load processed images: %v", err)
				infoLabel.SetText(fmt.Sprintf("Failed to load processed images: %v", err))
				return
			}
			records = recent
			infoLabel.SetText(fmt.Sprintf("%d most recent processed images", len(records)))
			list.Refresh()
		})
	}()

	bottom := container.NewCenter(copyButton)
	return container.NewBorder(infoLabel, bottom, nil, nil, list)
}

func recordTitle(rec storage.ImageRecord) string {
	return fmt.Sprintf("%s · %s · %dx%d from %dx%d %s · %s",
		rec.Query, rec.FileName, rec.Width, rec.Height,
		rec.OriginalWidth, rec.OriginalHeight, rec.Format,
		rec.ProcessedAt.Local().Format("2006-01-02 15:04"))
}
