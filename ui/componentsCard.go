package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
)

// NewCard wraps content in a white card so it stands out from the gradient.
// The background rectangle sits behind the padded content.
func NewCard(content fyne.CanvasObject) fyne.CanvasObject {
	bg := canvas.NewRectangle(CardBackgroundColor)
	bg.SetMinSize(fyne.NewSize(CardMinWidth, CardMinHeight))
	bg.CornerRadius = 6

	return container.NewStack(bg, container.NewPadded(content))
}

// NewCardWithHeader creates a card with a bold title and separator above content
func NewCardWithHeader(title string, content fyne.CanvasObject) fyne.CanvasObject {
	return NewCard(NewSection(title, nil, content))
}

// NewSection lays out a titled block: header at the top, optional footer
// (usually a button row) at the bottom, content filling the rest
func NewSection(title string, footer fyne.CanvasObject, content fyne.CanvasObject) fyne.CanvasObject {
	header := container.NewVBox(
		NewBoldLabel(title),
		NewSeparator(),
	)

	var bottom fyne.CanvasObject
	if footer != nil {
		bottom = container.NewVBox(NewSeparator(), footer)
	}

	return container.NewBorder(header, bottom, nil, nil, content)
}
