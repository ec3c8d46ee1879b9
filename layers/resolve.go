package layers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"layercast/logger"
	"layercast/models"
)

// imageExts are the file extensions accepted as layer frames. Every format
// listed has a decoder registered by the compositor.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImagePath reports whether path has a recognized image extension.
// Matching is case-insensitive.
func IsImagePath(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// Resolve turns layer sources into per-layer path sequences. A source is
// either a single image (a one-frame layer) or a directory whose image files,
// sorted by name, form the layer's frames. Subdirectories are ignored.
func Resolve(sources []string) ([][]string, error) {
	if len(sources) == 0 {
		return nil, &models.ValidationError{Field: "layers", Reason: "at least one layer is required"}
	}

	out := make([][]string, 0, len(sources))
	for i, src := range sources {
		field := fmt.Sprintf("layers[%d]", i)
		if strings.TrimSpace(src) == "" {
			return nil, &models.ValidationError{Field: field, Reason: "path is empty"}
		}

		info, err := os.Stat(src)
		if err != nil {
			return nil, &models.ValidationError{Field: field, Reason: err.Error()}
		}

		if !info.IsDir() {
			if !IsImagePath(src) {
				return nil, &models.ValidationError{Field: field, Reason: fmt.Sprintf("%s is not a recognized image file", src)}
			}
			out = append(out, []string{src})
			logger.Debugf("layer %d: single image %s", i, src)
			continue
		}

		frames, err := listImages(src)
		if err != nil {
			return nil, &models.ValidationError{Field: field, Reason: err.Error()}
		}
		if len(frames) == 0 {
			return nil, &models.EmptyLayerError{Layer: i, Dir: src}
		}
		logger.Debugf("layer %d: %d images in %s", i, len(frames), src)
		out = append(out, frames)
	}
	return out, nil
}

// listImages returns the image files directly inside dir, sorted by name.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsImagePath(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}
