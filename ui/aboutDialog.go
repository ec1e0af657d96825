package ui

import (
	"gazo/config"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

func ShowAboutDialog(gazoApp fyne.App) {
	title := widget.NewLabel("gazo")
	title.TextStyle = fyne.TextStyle{Bold: true}

	version := widget.NewLabel(
		"Version: " + config.Version +
			"\nCommit: " + config.GitCommit +
			"\nBuilt: " + config.BuildTime,
	)
	version.Alignment = fyne.TextAlignCenter

	description := widget.NewLabel(
		"Search the web for images, fit them to an aspect ratio, sharpen them " +
			"and export the results as files, a zip archive or to a bucket.",
	)
	description.Wrapping = fyne.TextWrapWord

	features := widget.NewLabel(
		"Features:\n" +
			"• Google, Bing, DuckDuckGo, SearXNG, Brave and SerpApi\n" +
			"• Resize and centre-crop to preset or custom sizes\n" +
			"• Sharpen, contrast and saturation enhancement\n" +
			"• Background processing queue\n" +
			"• ZIP, folder and S3 compatible bucket export\n" +
			"• Search history with import and export",
	)
	features.Wrapping = fyne.TextWrapWord

	var aboutWin fyne.Window
	closeBtn := widget.NewButton("Close", func() {
		aboutWin.Close()
	})

	mainContent := container.NewVBox(
		container.NewCenter(title),
		container.NewCenter(version),
		widget.NewSeparator(),
		description,
		widget.NewSeparator(),
		features,
	)

	bottom := container.NewVBox(
		widget.NewSeparator(),
		container.NewCenter(closeBtn),
	)

	content := container.NewBorder(nil, bottom, nil, nil, container.NewScroll(mainContent))

	aboutWin = gazoApp.NewWindow("About gazo")
	aboutWin.SetContent(content)
	aboutWin.Resize(fyne.NewSize(420, 420))
	aboutWin.SetFixedSize(true)
	aboutWin.Show()
}
