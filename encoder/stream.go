package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"layercast/logger"
	"layercast/models"
)

// streamHandle pipes raw RGBA frames into a running ffmpeg process.
type streamHandle struct {
	opts    Options
	partial string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  bytes.Buffer
	frames  int
	done    bool
}

// OpenStream starts ffmpeg reading rawvideo from stdin. No frame touches the
// disk before encoding.
func OpenStream(ctx context.Context, opts Options) (Handle, error) {
	partial, err := prepareOutput(opts.Output)
	if err != nil {
		return nil, err
	}

	args := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"framerate": opts.FPS,
	}).Output(partial, videoArgs()).OverWriteOutput().GetArgs()

	h := &streamHandle{opts: opts, partial: partial}
	h.cmd = exec.CommandContext(ctx, opts.FFmpegPath, args...)
	h.cmd.Stderr = &h.stderr
	h.stdin, err = h.cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	logger.Debugf("running %s %v", opts.FFmpegPath, args)
	if err := h.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return h, nil
}

func (h *streamHandle) WriteFrame(img *image.RGBA) error {
	if h.done {
		return &models.EncodeError{Op: "write", Err: fmt.Errorf("handle already finalized")}
	}
	if err := checkFrame(img, h.opts); err != nil {
		return err
	}
	rowLen := h.opts.Width * 4
	for y := 0; y < h.opts.Height; y++ {
		off := y * img.Stride
		if _, err := h.stdin.Write(img.Pix[off : off+rowLen]); err != nil {
			return &models.EncodeError{Op: "write", Err: fmt.Errorf("frame %d: %w: %s", h.frames, err, stderrTail(&h.stderr))}
		}
	}
	h.frames++
	return nil
}

func (h *streamHandle) Close() error {
	if h.done {
		return nil
	}
	h.done = true

	h.stdin.Close()
	if err := h.cmd.Wait(); err != nil {
		os.Remove(h.partial)
		return &models.EncodeError{Op: "close", Err: fmt.Errorf("ffmpeg: %w: %s", err, stderrTail(&h.stderr))}
	}
	if err := publish(h.partial, h.opts.Output); err != nil {
		return &models.EncodeError{Op: "close", Err: err}
	}
	logger.Debugf("encoder [ffmpeg] wrote %d frames to %s", h.frames, h.opts.Output)
	return nil
}

func (h *streamHandle) Abort() error {
	if h.done {
		return nil
	}
	h.done = true

	h.stdin.Close()
	if h.cmd.Process != nil {
		h.cmd.Process.Kill()
	}
	h.cmd.Wait()
	if err := os.Remove(h.partial); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
