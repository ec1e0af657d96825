package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// NewBoldLabel creates a left-aligned bold label
func NewBoldLabel(text string) *widget.Label {
	return widget.NewLabelWithStyle(
		text,
		fyne.TextAlignLeading,
		fyne.TextStyle{Bold: true},
	)
}

// NewSeparator creates a horizontal separator line
func NewSeparator() *widget.Separator {
	return widget.NewSeparator()
}

// NewHintLabel creates a wrapped, italic label for empty states and hints
func NewHintLabel(text string) *widget.Label {
	label := widget.NewLabelWithStyle(text, fyne.TextAlignCenter, fyne.TextStyle{Italic: true})
	label.Wrapping = fyne.TextWrapWord
	return label
}

// NewFormRow puts a fixed label to the left of a field
func NewFormRow(label string, field fyne.CanvasObject) fyne.CanvasObject {
	return container.NewBorder(nil, nil, widget.NewLabel(label), nil, field)
}
