package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
)

// NewHeader creates the title block shown above the columns.
// "画像" (gazo) is Japanese for "image".
func NewHeader() fyne.CanvasObject {
	titleText := canvas.NewText("画像 gazo", TextColorLight)
	titleText.TextSize = TitleTextSize
	titleText.TextStyle = fyne.TextStyle{Bold: true}
	titleText.Alignment = fyne.TextAlignCenter

	subtitleText := canvas.NewText(
		"Search, fit, sharpen and export images",
		TextColorLight,
	)
	subtitleText.TextSize = SubtitleTextSize
	subtitleText.Alignment = fyne.TextAlignCenter

	return container.NewVBox(
		titleText,
		subtitleText,
		layout.NewSpacer(),
	)
}
