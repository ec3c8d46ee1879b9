package encoder

import (
	"context"
	"fmt"
	"image"

	"layercast/models"
)

// nullHandle checks frames and discards them. It backs dry runs.
type nullHandle struct {
	opts   Options
	frames int
	done   bool
}

// OpenNull opens an encoder that writes nothing.
func OpenNull(ctx context.Context, opts Options) (Handle, error) {
	return &nullHandle{opts: opts}, nil
}

func (h *nullHandle) WriteFrame(img *image.RGBA) error {
	if h.done {
		return &models.EncodeError{Op: "write", Err: fmt.Errorf("handle already finalized")}
	}
	if err := checkFrame(img, h.opts); err != nil {
		return err
	}
	h.frames++
	return nil
}

func (h *nullHandle) Close() error {
	h.done = true
	return nil
}

func (h *nullHandle) Abort() error {
	h.done = true
	return nil
}
