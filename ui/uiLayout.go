package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
)

// BuildMainLayout assembles the main window on top of the gradient background.
//
// The layout structure is:
//   - Header: application title (top)
//   - Left column: search form (top) and processing options (bottom)
//   - Centre column: results grid
//   - Right column: processing queue (top) and processed gallery (bottom)
//   - Footer: version (bottom)
func BuildMainLayout(state *AppState) fyne.CanvasObject {
	gradient := canvas.NewLinearGradient(
		GradientStartColor,
		GradientEndColor,
		GradientAngle,
	)

	header := NewHeader()

	searchView := NewSearchView(state)
	optionsView := NewOptionsView(state)
	resultsView := NewResultsView(state)
	queueView := NewProcessQueueView(state)
	galleryView := NewGalleryView(state)

	leftColumn := container.NewVSplit(
		container.NewStack(searchView.Card),
		container.NewStack(optionsView.Card),
	)
	leftColumn.SetOffset(0.45)

	rightColumn := container.NewVSplit(
		container.NewStack(queueView.Card),
		container.NewStack(galleryView.Card),
	)
	rightColumn.SetOffset(0.35)

	// results get the widest column, the side columns share the rest
	centreAndRight := container.NewHSplit(
		container.NewPadded(resultsView.Card),
		container.NewPadded(rightColumn),
	)
	centreAndRight.SetOffset(0.55)

	contentArea := container.NewHSplit(
		container.NewPadded(leftColumn),
		centreAndRight,
	)
	contentArea.SetOffset(0.25)

	footer := NewFooter()

	mainLayout := container.NewBorder(
		container.NewPadded(header),
		container.NewPadded(footer),
		nil,
		nil,
		contentArea,
	)

	return container.NewStack(gradient, mainLayout)
}
