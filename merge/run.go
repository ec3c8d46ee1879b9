// Package merge runs a complete layer merge: resolve and normalize the
// layers, composite every frame in parallel, and encode the ordered frames
// into a video. It also owns the server's queue of submitted runs.
package merge

import (
	"context"
	"image"
	"sync"
	"time"

	"layercast/compositor"
	"layercast/config"
	"layercast/encoder"
	"layercast/layers"
	"layercast/logger"
	"layercast/models"
	"layercast/pipeline"
	"layercast/preview"
)

// Options are per-call settings that are not part of the MergeSpec.
type Options struct {
	Workers    int    // overrides spec.Workers when > 0
	FFmpegPath string // empty = config

	// Progress receives a percentage in [0,100]. Values never decrease and
	// 100 is reported exactly once, after the video is finalized.
	Progress func(percent float64)

	PreviewID string // ID given to the preview cache when spec.Preview is set
}

// Result describes a finished video.
type Result struct {
	Output     string
	Frames     int
	Layers     int
	Encoder    string
	RenderTime time.Duration
	Preview    *preview.Cache // nil unless spec.Preview

	// Canvas is the frame size, taken from layer 0. The ffmpeg encoders pad
	// an odd width or height up by one pixel, so the video may be that much
	// larger.
	Canvas image.Point
}

// Run merges spec into a video at spec.Output. On any error nothing is left
// at spec.Output and the error is one of the models error types or a
// context error.
func Run(ctx context.Context, spec models.MergeSpec, opts Options) (*Result, error) {
	start := time.Now()
	spec = withDefaults(spec)
	if err := Validate(&spec); err != nil {
		return nil, err
	}

	sources, err := layers.Resolve(spec.Layers)
	if err != nil {
		return nil, err
	}
	set, err := layers.Normalize(sources)
	if err != nil {
		return nil, err
	}

	first := set.Layer(0)[0]
	canvas, err := compositor.ProbeCanvas(first)
	if err != nil {
		return nil, &models.DecodeError{Frame: 0, Layer: 0, Path: first, Err: err}
	}
	comp := compositor.New(canvas, spec.EffectSelection, spec.EffectParams)

	workers := spec.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	if workers <= 0 {
		workers = config.GetWorkerCount()
	}

	logger.Infof("merge: %d layers, %d frames, canvas %dx%d, %d fps, %d workers, encoder %s -> %s",
		set.NumLayers(), set.NumFrames(), canvas.X, canvas.Y, spec.FPS, workers, spec.Encoder, spec.Output)

	enc, err := encoder.Open(ctx, spec.Encoder, encoder.Options{
		Output:     spec.Output,
		FPS:        spec.FPS,
		Width:      canvas.X,
		Height:     canvas.Y,
		FFmpegPath: opts.FFmpegPath,
	})
	if err != nil {
		return nil, err
	}

	var cache *preview.Cache
	if spec.Preview {
		cache = preview.NewCache(opts.PreviewID, set.NumFrames())
	}

	report := progressReporter(opts.Progress)
	compose := func(ctx context.Context, job layers.Job) (*image.RGBA, error) {
		return comp.CompositeFrame(ctx, job.Index, job.Paths)
	}
	sink := func(cf pipeline.CompositedFrame) error {
		if err := enc.WriteFrame(cf.Image); err != nil {
			return err
		}
		if cache != nil {
			return cache.Add(cf.Index, cf.Image)
		}
		return nil
	}

	err = pipeline.Run(ctx, set.Jobs(), compose, pipeline.Options{
		Workers: workers,
		Progress: func(fraction float64) {
			// 100 is held back until the encoder has finalized
			if fraction < 1 {
				report(fraction * 100)
			}
		},
	}, sink)
	if err != nil {
		if abortErr := enc.Abort(); abortErr != nil {
			logger.Warnf("merge: discarding partial output: %v", abortErr)
		}
		logger.Errorf("merge failed after %v: %v", time.Since(start).Round(time.Millisecond), err)
		return nil, err
	}
	if err := enc.Close(); err != nil {
		logger.Errorf("merge failed finalizing %s: %v", spec.Output, err)
		return nil, err
	}
	report(100)

	res := &Result{
		Output:     spec.Output,
		Frames:     set.NumFrames(),
		Layers:     set.NumLayers(),
		Canvas:     canvas,
		Encoder:    spec.Encoder,
		RenderTime: time.Since(start),
		Preview:    cache,
	}
	logger.Infof("merge: wrote %d frames to %s in %v", res.Frames, res.Output, res.RenderTime.Round(time.Millisecond))
	return res, nil
}

// progressReporter wraps fn so values are clamped to [0,100] and never
// decrease.
func progressReporter(fn func(float64)) func(float64) {
	if fn == nil {
		return func(float64) {}
	}
	var mu sync.Mutex
	last := -1.0
	return func(p float64) {
		mu.Lock()
		defer mu.Unlock()
		p = min(max(p, 0), 100)
		if p < last {
			return
		}
		last = p
		fn(p)
	}
}
