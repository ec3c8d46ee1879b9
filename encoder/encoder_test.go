package encoder_test

import (
	"context"
	"errors"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"layercast/encoder"
	"layercast/models"
)

func TestRegisterDefaultsHasNull(t *testing.T) {
	encoder.RegisterDefaults()
	if _, ok := encoder.Get("null"); !ok {
		t.Fatalf("null encoder not registered; have %v", encoder.Names())
	}
	if _, ok := encoder.Get("no-such-encoder"); ok {
		t.Errorf("Get returned an unregistered encoder")
	}
}

func TestRegisterSkipsMissingCommand(t *testing.T) {
	encoder.Register("ghost", "layercast-definitely-not-installed", encoder.OpenNull)
	if _, ok := encoder.Get("ghost"); ok {
		t.Errorf("encoder with missing command was registered")
	}
}

func TestOpenValidates(t *testing.T) {
	encoder.RegisterDefaults()
	ctx := context.Background()
	cases := []encoder.Options{
		{Output: "x.mp4", FPS: 0, Width: 2, Height: 2},
		{Output: "x.mp4", FPS: 24, Width: 0, Height: 2},
	}
	for _, opts := range cases {
		var eerr *models.EncodeError
		if _, err := encoder.Open(ctx, "null", opts); !errors.As(err, &eerr) {
			t.Errorf("Open(%+v): expected EncodeError, got %v", opts, err)
		}
	}
	var eerr *models.EncodeError
	if _, err := encoder.Open(ctx, "missing", encoder.Options{FPS: 1, Width: 1, Height: 1}); !errors.As(err, &eerr) {
		t.Errorf("expected EncodeError for unknown encoder, got %v", err)
	}
}

func TestNullEncoderChecksFrameSize(t *testing.T) {
	encoder.RegisterDefaults()
	h, err := encoder.Open(context.Background(), "null", encoder.Options{Output: "x.mp4", FPS: 24, Width: 4, Height: 2})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := h.WriteFrame(image.NewRGBA(image.Rect(0, 0, 4, 2))); err != nil {
		t.Errorf("WriteFrame rejected a correct frame: %v", err)
	}
	var eerr *models.EncodeError
	if err := h.WriteFrame(image.NewRGBA(image.Rect(0, 0, 2, 2))); !errors.As(err, &eerr) {
		t.Errorf("expected EncodeError for wrong size, got %v", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestFramesAbortRemovesStaging(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.mp4")
	h, err := encoder.OpenFrames(context.Background(), encoder.Options{Output: out, FPS: 10, Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("OpenFrames failed: %v", err)
	}
	staging := h.(interface{ StagingDir() string }).StagingDir()

	if err := h.WriteFrame(image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(staging, "frame_00000.png")); err != nil {
		t.Fatalf("staged frame missing: %v", err)
	}
	if err := h.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	if _, err := os.Stat(staging); !os.IsNotExist(err) {
		t.Errorf("staging directory survived Abort: %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output exists after Abort")
	}
	if err := h.Abort(); err != nil {
		t.Errorf("second Abort failed: %v", err)
	}
}

func TestFramesCloseWithoutFrames(t *testing.T) {
	dir := t.TempDir()
	h, err := encoder.OpenFrames(context.Background(), encoder.Options{Output: filepath.Join(dir, "out.mp4"), FPS: 10, Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("OpenFrames failed: %v", err)
	}
	staging := h.(interface{ StagingDir() string }).StagingDir()
	var eerr *models.EncodeError
	if err := h.Close(); !errors.As(err, &eerr) {
		t.Errorf("expected EncodeError closing empty video, got %v", err)
	}
	if _, err := os.Stat(staging); !os.IsNotExist(err) {
		t.Errorf("staging directory survived Close")
	}
}

func TestStreamEncodesVideo(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "clip.mp4")
	h, err := encoder.OpenStream(context.Background(), encoder.Options{Output: out, FPS: 10, Width: 5, Height: 3, FFmpegPath: "ffmpeg"})
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 5, 3))
		for p := range img.Pix {
			img.Pix[p] = uint8(i * 40)
		}
		if err := h.WriteFrame(img); err != nil {
			h.Abort()
			t.Fatalf("WriteFrame %d failed: %v", i, err)
		}
	}
	if err := h.Close(); err != nil {
		if strings.Contains(err.Error(), "libx264") {
			t.Skip("ffmpeg built without libx264")
		}
		t.Fatalf("Close failed: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if info.Size() == 0 {
		t.Errorf("output is empty")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the output in %s, found %d entries", dir, len(entries))
	}
}

// writeStubFFmpeg installs a script that writes its own arguments into the
// partial output file it is given.
func writeStubFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub")
	}
	path := filepath.Join(t.TempDir(), "my-ffmpeg")
	script := "#!/bin/sh\nfor a in \"$@\"; do case \"$a\" in *.partial.*) echo \"$@\" > \"$a\";; esac; done\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenUsesFFmpegPathOutsidePATH(t *testing.T) {
	stub := writeStubFFmpeg(t)
	t.Setenv("PATH", t.TempDir())
	t.Setenv("LAYERCAST_FFMPEG", "")

	out := filepath.Join(t.TempDir(), "out.mp4")
	h, err := encoder.Open(context.Background(), "ffmpeg-frames", encoder.Options{Output: out, FPS: 10, Width: 2, Height: 2, FFmpegPath: stub})
	if err != nil {
		t.Fatalf("Open with explicit ffmpeg path failed: %v", err)
	}
	if err := h.WriteFrame(image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		h.Abort()
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	args := string(data)
	for _, want := range []string{"frame_%05d.png", "libx264", "yuv420p", "pad=ceil(iw/2)*2:ceil(ih/2)*2"} {
		if !strings.Contains(args, want) {
			t.Errorf("ffmpeg arguments %q missing %q", args, want)
		}
	}
}

func TestOpenRejectsMissingFFmpegPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-ffmpeg")
	for _, name := range []string{"ffmpeg", "ffmpeg-frames"} {
		_, err := encoder.Open(context.Background(), name, encoder.Options{Output: filepath.Join(t.TempDir(), "x.mp4"), FPS: 10, Width: 2, Height: 2, FFmpegPath: missing})
		var eerr *models.EncodeError
		if !errors.As(err, &eerr) {
			t.Errorf("%s: expected EncodeError for a missing binary, got %v", name, err)
		}
	}
}
