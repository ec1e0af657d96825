package parser

import (
	"fmt"
	"strings"
)

// AspectPreset is a named output size
type AspectPreset struct {
	Label  string `json:"label"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

const DefaultAspectLabel = "16:9 (landscape)"

// CustomAspectLabel selects the user supplied width and height
const CustomAspectLabel = "Custom"

var aspectPresets = []AspectPreset{
	{Label: "16:9 (landscape)", Width: 1920, Height: 1080},
	{Label: "9:16 (portrait)", Width: 1080, Height: 1920},
	{Label: "1:1 (square)", Width: 1080, Height: 1080},
	{Label: "4:3", Width: 1440, Height: 1080},
	{Label: "3:2", Width: 1620, Height: 1080},
	{Label: "21:9 (ultrawide)", Width: 2520, Height: 1080},
}

// AspectLabels returns preset labels followed by the custom option
func AspectLabels() []string {
	labels := make([]string, 0, len(aspectPresets)+1)
	for _, p := range aspectPresets {
		labels = append(labels, p.Label)
	}
	return append(labels, CustomAspectLabel)
}

// FindAspectPreset looks a preset up by label, ignoring case and surrounding space
func FindAspectPreset(label string) (AspectPreset, bool) {
	label = strings.TrimSpace(label)
	for _, p := range aspectPresets {
		if strings.EqualFold(p.Label, label) {
			return p, true
		}
	}
	return AspectPreset{}, false
}

// ResolveTargetSize returns the output size for a preset label. The custom label
// uses customW x customH, an unknown label falls back to the default preset.
func ResolveTargetSize(label string, customW, customH int) (int, int) {
	if strings.EqualFold(strings.TrimSpace(label), CustomAspectLabel) && customW > 0 && customH > 0 {
		return customW, customH
	}
	if p, ok := FindAspectPreset(label); ok {
		return p.Width, p.Height
	}
	def, _ := FindAspectPreset(DefaultAspectLabel)
	return def.Width, def.Height
}

// Ratio renders a size as a reduced ratio, 1920x1080 -> "16:9"
func Ratio(w, h int) string {
	if w <= 0 || h <= 0 {
		return "0:0"
	}
	g := gcd(w, h)
	return fmt.Sprintf("%d:%d", w/g, h/g)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
