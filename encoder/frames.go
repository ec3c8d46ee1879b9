package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"layercast/logger"
	"layercast/models"
)

// framePattern names staged frames; ffmpeg's image2 demuxer reads it back.
const framePattern = "frame_%05d.png"

// framesHandle stages each frame as a PNG in a private temp directory and
// encodes the whole sequence on Close. The directory never outlives the handle.
type framesHandle struct {
	ctx     context.Context
	opts    Options
	dir     string
	partial string
	png     png.Encoder
	frames  int
	done    bool
}

// OpenFrames creates the staging directory for a staged-frames encode.
func OpenFrames(ctx context.Context, opts Options) (Handle, error) {
	partial, err := prepareOutput(opts.Output)
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "layercast-frames-*")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	logger.Debugf("staging frames in %s", dir)
	return &framesHandle{
		ctx:     ctx,
		opts:    opts,
		dir:     dir,
		partial: partial,
		png:     png.Encoder{CompressionLevel: png.BestSpeed},
	}, nil
}

// StagingDir returns the temp directory frames are written to.
func (h *framesHandle) StagingDir() string { return h.dir }

func (h *framesHandle) WriteFrame(img *image.RGBA) error {
	if h.done {
		return &models.EncodeError{Op: "write", Err: fmt.Errorf("handle already finalized")}
	}
	if err := checkFrame(img, h.opts); err != nil {
		return err
	}
	path := filepath.Join(h.dir, fmt.Sprintf(framePattern, h.frames))
	f, err := os.Create(path)
	if err != nil {
		return &models.EncodeError{Op: "write", Err: err}
	}
	if err := h.png.Encode(f, img); err != nil {
		f.Close()
		return &models.EncodeError{Op: "write", Err: fmt.Errorf("frame %d: %w", h.frames, err)}
	}
	if err := f.Close(); err != nil {
		return &models.EncodeError{Op: "write", Err: err}
	}
	h.frames++
	return nil
}

func (h *framesHandle) Close() error {
	if h.done {
		return nil
	}
	h.done = true
	defer os.RemoveAll(h.dir)

	if h.frames == 0 {
		return &models.EncodeError{Op: "close", Err: fmt.Errorf("no frames written")}
	}

	args := ffmpeg.Input(filepath.Join(h.dir, framePattern), ffmpeg.KwArgs{
		"framerate":    h.opts.FPS,
		"start_number": 0,
	}).Output(h.partial, videoArgs()).OverWriteOutput().GetArgs()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(h.ctx, h.opts.FFmpegPath, args...)
	cmd.Stderr = &stderr
	logger.Debugf("running %s %v", h.opts.FFmpegPath, args)
	if err := cmd.Run(); err != nil {
		os.Remove(h.partial)
		return &models.EncodeError{Op: "close", Err: fmt.Errorf("ffmpeg: %w: %s", err, stderrTail(&stderr))}
	}
	if err := publish(h.partial, h.opts.Output); err != nil {
		return &models.EncodeError{Op: "close", Err: err}
	}
	logger.Debugf("encoder [ffmpeg-frames] wrote %d frames to %s", h.frames, h.opts.Output)
	return nil
}

func (h *framesHandle) Abort() error {
	if h.done {
		return nil
	}
	h.done = true
	os.Remove(h.partial)
	return os.RemoveAll(h.dir)
}
