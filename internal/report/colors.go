package report

import (
	"image/color"

	"gonum.org/v1/plot/plotutil"
)

// Fixed colours for the standard four-sample layout; extra backgrounds fall
// back to the plotutil palette.
var (
	signalColor     = color.RGBA{R: 220, G: 20, B: 30, A: 255}
	backgroundColor = color.RGBA{R: 30, G: 60, B: 220, A: 255}
	markerColor     = color.RGBA{R: 40, G: 40, B: 40, A: 255}

	stackColors = []color.Color{
		color.RGBA{R: 102, G: 102, B: 255, A: 255}, // blue-7
		color.RGBA{R: 51, G: 204, B: 51, A: 255},   // green-6
		color.RGBA{R: 153, G: 204, B: 255, A: 255}, // azure-9
	}
)

// fillColors returns n fill colours, using stackColors first and cycling
// through the plotutil palette after that.
func fillColors(n int) []color.Color {
	if n <= len(stackColors) {
		return stackColors[:n]
	}
	out := append([]color.Color(nil), stackColors...)
	for i := len(stackColors); i < n; i++ {
		out = append(out, plotutil.Color(i-len(stackColors)))
	}
	return out
}
