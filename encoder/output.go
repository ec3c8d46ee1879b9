package encoder

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// partialPath is the hidden sibling of output that encoders write to. It
// keeps output's extension so ffmpeg picks the same container.
func partialPath(output string) string {
	dir, base := filepath.Split(output)
	ext := filepath.Ext(base)
	return filepath.Join(dir, "."+strings.TrimSuffix(base, ext)+".partial"+ext)
}

// prepareOutput makes sure output's directory exists and clears any stale
// partial file. It returns the partial path.
func prepareOutput(output string) (string, error) {
	if output == "" {
		return "", fmt.Errorf("output path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	partial := partialPath(output)
	if err := os.Remove(partial); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove stale partial file: %w", err)
	}
	return partial, nil
}

// publish moves a finished partial file into place.
func publish(partial, output string) error {
	if err := os.Rename(partial, output); err != nil {
		os.Remove(partial)
		return fmt.Errorf("finalize %s: %w", output, err)
	}
	return nil
}

// videoArgs are the output options shared by the ffmpeg encoders: H.264 in
// yuv420p for broad player support. yuv420p needs even dimensions, so odd
// canvases are padded by one pixel.
func videoArgs() ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"c:v":      "libx264",
		"pix_fmt":  "yuv420p",
		"vf":       "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"movflags": "+faststart",
	}
}

// stderrTail returns the last few lines of ffmpeg's stderr for error messages.
func stderrTail(buf *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}
