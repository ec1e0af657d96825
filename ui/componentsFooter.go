package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"gazo/config"
)

// NewFooter shows the build version at the bottom of the window
func NewFooter() fyne.CanvasObject {
	footerText := canvas.NewText("gazo "+config.Version, TextColorLight)
	footerText.TextSize = FooterTextSize
	footerText.Alignment = fyne.TextAlignCenter

	return footerText
}
