package ui

import (
	"fmt"
	"io"

	"gazo/history"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

// ShowImportHistoryDialog merges an exported history file into the current one.
// onDone runs after a successful import.
func ShowImportHistoryDialog(window fyne.Window, onDone func()) {
	openDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(fmt.Errorf("error opening file dialog: %v", err), window)
			return
		}

		if reader == nil {
			// User cancelled
			return
		}
		defer reader.Close()

		data, err := io.ReadAll(reader)
		if err != nil {
			dialog.ShowError(fmt.Errorf("failed to read file: %v", err), window)
			return
		}

		imported, err := history.Parse(data)
		if err != nil {
			dialog.ShowError(err, window)
			return
		}

		result, err := history.Import(imported)
		if err != nil {
			dialog.ShowError(fmt.Errorf("failed to save history: %v", err), window)
			return
		}

		summaryMsg := fmt.Sprintf(
			"Import completed!\n\n"+
				"Total in imported file: %d\n"+
				"Duplicates skipped: %d\n"+
				"New searches added: %d",
			len(imported.Entries),
			result.Duplicates,
			result.Added,
		)
		dialog.ShowInformation("Import Summary", summaryMsg, window)

		if onDone != nil {
			onDone()
		}
	}, window)

	openDialog.SetFilter(storage.NewExtensionFileFilter([]string{".json", ".txt"}))
	setHomeLocation(openDialog)
	openDialog.Resize(fyne.NewSize(900, 700))
	openDialog.Show()
}
