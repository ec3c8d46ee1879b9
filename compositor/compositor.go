// Package compositor builds one output frame from the layer images at a
// frame index: decode, apply selected effects, alpha-composite bottom to top.
package compositor

import (
	"context"
	"image"

	"github.com/anthonynsimon/bild/clone"
	"golang.org/x/image/draw"

	"layercast/effects"
	"layercast/logger"
	"layercast/models"
)

// Compositor is read-only after construction and safe for concurrent use by
// any number of workers.
type Compositor struct {
	canvas image.Point
	sel    models.EffectSelection
	params models.EffectParams

	// decode is swapped in tests.
	decode func(path string) (image.Image, error)
}

// New returns a Compositor for a canvas of the given size.
func New(canvas image.Point, sel models.EffectSelection, params models.EffectParams) *Compositor {
	return &Compositor{
		canvas: canvas,
		sel:    sel,
		params: params,
		decode: decodeFile,
	}
}

// Canvas returns the canvas size every layer image must match.
func (c *Compositor) Canvas() image.Point { return c.canvas }

// CompositeFrame decodes paths (bottom layer first), applies the selected
// effects per layer, and composites each layer over the accumulated result.
// The returned image is owned by the caller.
func (c *Compositor) CompositeFrame(ctx context.Context, frame int, paths []string) (*image.RGBA, error) {
	var base *image.RGBA
	for layer, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := c.decode(path)
		if err != nil {
			return nil, &models.DecodeError{Frame: frame, Layer: layer, Path: path, Err: err}
		}
		if size := img.Bounds().Size(); size != c.canvas {
			return nil, &models.DimensionMismatchError{Frame: frame, Layer: layer, Path: path, Got: size, Want: c.canvas}
		}

		rgba := c.applyEffects(layer, img)
		if base == nil {
			base = rgba
			continue
		}
		draw.Draw(base, base.Bounds(), rgba, rgba.Bounds().Min, draw.Over)
	}
	if base == nil {
		return nil, &models.ValidationError{Field: "paths", Reason: "frame has no layers"}
	}
	logger.Debugf("frame %d composited from %d layers", frame, len(paths))
	return base, nil
}

// applyEffects converts img to a zero-origin RGBA and applies the effects
// selected for layer. Blur runs before fog.
func (c *Compositor) applyEffects(layer int, img image.Image) *image.RGBA {
	out := toRGBA(img)
	if c.sel.Blurs(layer) && c.params.BlurAmount > 0 {
		out = effects.Blur(out, c.params.BlurAmount)
	}
	if c.sel.Fogs(layer) && c.params.FogAmount > 0 {
		out = effects.Fog(out, c.params.FogAmount)
	}
	return out
}

// toRGBA returns an RGBA copy of img whose bounds start at the origin.
func toRGBA(img image.Image) *image.RGBA {
	out := clone.AsRGBA(img)
	if out.Rect.Min != (image.Point{}) {
		out.Rect = out.Rect.Sub(out.Rect.Min)
	}
	return out
}
