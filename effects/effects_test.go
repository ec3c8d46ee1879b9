package effects_test

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"layercast/effects"
)

func checker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	return img
}

func TestBlurZeroIsIdentity(t *testing.T) {
	src := checker(8, 8)
	out := effects.Blur(src, 0)
	if !bytes.Equal(out.Pix, src.Pix) {
		t.Errorf("Blur with radius 0 changed pixels")
	}
	if &out.Pix[0] == &src.Pix[0] {
		t.Errorf("Blur returned its input instead of a copy")
	}
}

func TestBlurSmoothsAndKeepsInput(t *testing.T) {
	src := checker(8, 8)
	before := append([]byte(nil), src.Pix...)

	out := effects.Blur(src, 2)
	if !bytes.Equal(src.Pix, before) {
		t.Fatalf("Blur modified its input")
	}
	if out.Bounds() != src.Bounds() {
		t.Fatalf("Blur changed bounds: %v", out.Bounds())
	}
	c := out.RGBAAt(4, 4)
	if c.R == 255 || c.B == 255 {
		t.Errorf("expected mixed colour after blur, got %v", c)
	}

	again := effects.Blur(src, 2)
	if !bytes.Equal(out.Pix, again.Pix) {
		t.Errorf("Blur is not deterministic")
	}
}

func TestFog(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range src.Pix {
		src.Pix[i] = 0
	}
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}

	if out := effects.Fog(src, 0); !bytes.Equal(out.Pix, src.Pix) {
		t.Errorf("Fog with opacity 0 changed pixels")
	}

	full := effects.Fog(src, 255).RGBAAt(0, 0)
	if full != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("Fog 255 over black = %v, want white", full)
	}

	half := effects.Fog(src, 128).RGBAAt(1, 1)
	if half.R < 120 || half.R > 136 || half.A != 255 {
		t.Errorf("Fog 128 over black = %v, want mid grey", half)
	}

	clamped := effects.Fog(src, 1000).RGBAAt(0, 0)
	if clamped != full {
		t.Errorf("Fog above 255 not clamped: %v", clamped)
	}

	if src.RGBAAt(0, 0) != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("Fog modified its input")
	}
}
