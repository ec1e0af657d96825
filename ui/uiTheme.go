package ui

import (
	"image/color"
)

// Colors used across the main window
var (
	// GradientStartColor is the teal at the top-left of the background
	GradientStartColor = color.RGBA{R: 32, G: 156, B: 176, A: 255}

	// GradientEndColor is the deep blue at the bottom-right of the background
	GradientEndColor = color.RGBA{R: 40, G: 72, B: 160, A: 255}

	// CardBackgroundColor is the white behind every card
	CardBackgroundColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

	// ThumbnailBackgroundColor fills a thumbnail slot until the preview arrives
	ThumbnailBackgroundColor = color.RGBA{R: 236, G: 239, B: 244, A: 255}

	// TextColorLight is used for text on the gradient
	TextColorLight = color.White
)

// Text sizes
const (
	TitleTextSize    = 44
	SubtitleTextSize = 15
	FooterTextSize   = 13
)

// Layout sizes
const (
	GradientAngle = 45

	CardMinWidth  = 100
	CardMinHeight = 100

	// ThumbnailSize is the edge of a square slot in the results grid
	ThumbnailSize = 150

	// GalleryPreviewSize is the edge of a square slot in the processed gallery
	GalleryPreviewSize = 180

	DefaultWindowWidth  = 1400
	DefaultWindowHeight = 860
)
