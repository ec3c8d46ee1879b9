package compositor

import (
	"fmt"
	"image"
	"os"

	// registered decoders for every extension layers.IsImagePath accepts
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// decodeFile reads and decodes the image at path.
func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w (format %q)", err, format)
	}
	return img, nil
}

// ProbeCanvas returns the pixel size of the image at path without decoding
// its pixels. The merge run calls it on layer 0's first frame.
func ProbeCanvas(path string) (image.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Point{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Point{}, err
	}
	return image.Point{X: cfg.Width, Y: cfg.Height}, nil
}
