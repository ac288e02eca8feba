package engine

import (
	"github.com/lucasb-eyer/go-colorful"

	"yashubustudio/densityfit/structure"
)

var (
	gradientLow  = colorful.Color{R: 0.85, G: 0.1, B: 0.1}
	gradientHigh = colorful.Color{R: 0.1, G: 0.7, B: 0.2}
)

// Gradient maps t in [0,1] to a colour between red and green, blended in Lab
// space. Values outside the range are clamped.
func Gradient(t float64) structure.RGB {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	r, g, b := gradientLow.BlendLab(gradientHigh, t).Clamped().RGB255()
	return structure.RGB{R: r, G: g, B: b}
}
