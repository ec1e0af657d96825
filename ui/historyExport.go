package ui

import (
	"fmt"
	"os"

	"gazo/history"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

// ShowExportHistoryDialog saves history.json to a user chosen file
func ShowExportHistoryDialog(window fyne.Window) {
	h, err := history.Load()
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to load history: %v", err), window)
		return
	}

	if len(h.Entries) == 0 {
		dialog.ShowConfirm(
			"Empty History",
			"There are no searches in the history. Do you still want to export it?",
			func(confirmed bool) {
				if confirmed {
					showHistorySaveDialog(window, h)
				}
			},
			window,
		)
		return
	}

	showHistorySaveDialog(window, h)
}

func showHistorySaveDialog(window fyne.Window, h history.History) {
	saveDialog := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(fmt.Errorf("error opening save dialog: %v", err), window)
			return
		}

		if writer == nil {
			// User cancelled
			return
		}
		defer writer.Close()

		if err := history.Export(writer, h); err != nil {
			dialog.ShowError(fmt.Errorf("failed to write history file: %v", err), window)
			return
		}

		dialog.ShowInformation("Success", fmt.Sprintf("%d searches exported.", len(h.Entries)), window)
	}, window)

	saveDialog.SetFileName("gazo-history.json")
	setHomeLocation(saveDialog)
	saveDialog.Resize(fyne.NewSize(900, 700))
	saveDialog.Show()
}

// setHomeLocation starts a file dialog in the user's home directory
func setHomeLocation(d interface{ SetLocation(fyne.ListableURI) }) {
	homePath, err := os.UserHomeDir()
	if err != nil {
		return
	}
	if homeDir, err := storage.ListerForURI(storage.NewFileURI(homePath)); err == nil {
		d.SetLocation(homeDir)
	}
}
