// Package effects holds the per-layer image effects. Both effects are pure:
// they never modify their input and know nothing about layer selection.
package effects

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/clone"
	"golang.org/x/image/draw"
)

// Blur returns a Gaussian-blurred copy of img. A radius <= 0 returns an
// unmodified RGBA copy.
func Blur(img image.Image, radius float64) *image.RGBA {
	if radius <= 0 {
		return clone.AsRGBA(img)
	}
	return blur.Gaussian(img, radius)
}

// Fog returns a copy of img with a full-canvas white layer of the given
// opacity composited over it. Opacity is clamped to 255; <= 0 returns an
// unmodified RGBA copy.
func Fog(img image.Image, opacity int) *image.RGBA {
	out := clone.AsRGBA(img)
	if opacity <= 0 {
		return out
	}
	if opacity > 255 {
		opacity = 255
	}
	haze := image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: uint8(opacity)})
	draw.Draw(out, out.Bounds(), haze, image.Point{}, draw.Over)
	return out
}
