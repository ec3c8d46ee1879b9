// Package encoder turns an ordered stream of composited frames into a video
// file. Encoders are looked up by name in a registry; ffmpeg-backed ones are
// only registered when the binary is found.
package encoder

import (
	"context"
	"fmt"
	"image"
	"os/exec"
	"sort"
	"sync"

	"layercast/config"
	"layercast/logger"
	"layercast/models"
)

// Options describes the video to produce. Width and Height are the frame
// size; the ffmpeg encoders pad odd values up to the next even number, so
// such a video is one pixel wider or taller than its frames.
type Options struct {
	Output     string
	FPS        int
	Width      int
	Height     int
	FFmpegPath string // empty = config.GetFFmpegPath(); may be outside PATH
}

// Handle is an open video sink. WriteFrame must be called once per frame in
// ascending frame order. Exactly one of Close or Abort finalizes the handle;
// further calls are no-ops. Until Close succeeds nothing exists at Output.
type Handle interface {
	WriteFrame(img *image.RGBA) error
	Close() error
	Abort() error
}

// Factory opens a Handle.
type Factory func(ctx context.Context, opts Options) (Handle, error)

var (
	registry     = map[string]Factory{}
	registryMu   sync.RWMutex
	defaultsOnce sync.Once
)

// Register adds an encoder if cmdName is empty or found in PATH.
func Register(name, cmdName string, fn Factory) {
	if cmdName != "" {
		if _, err := exec.LookPath(cmdName); err != nil {
			logger.Warnf("encoder [%s] skipped: command '%s' not found in PATH", name, cmdName)
			return
		}
	}
	registryMu.Lock()
	registry[name] = fn
	registryMu.Unlock()
	if cmdName != "" {
		logger.Debugf("encoder [%s] registered (command: %s)", name, cmdName)
	} else {
		logger.Debugf("encoder [%s] registered (no command required)", name)
	}
}

// Get looks an encoder up by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// Names lists the registered encoders, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ffmpegEncoders run the binary named by Options.FFmpegPath. Open resolves
// them per call, so a binary outside PATH works even when the registry
// skipped them.
var ffmpegEncoders = map[string]Factory{
	"ffmpeg":        OpenStream,
	"ffmpeg-frames": OpenFrames,
}

// RegisterDefaults registers the built-in encoders. The ffmpeg ones are
// listed only when the configured binary is found.
func RegisterDefaults() {
	ffmpegPath := config.GetFFmpegPath()
	for _, name := range []string{"ffmpeg", "ffmpeg-frames"} {
		Register(name, ffmpegPath, ffmpegEncoders[name])
	}
	Register("null", "", OpenNull)
}

// resolve finds the factory for name. Built-in ffmpeg encoders require
// ffmpegPath to be an executable.
func resolve(name, ffmpegPath string) (Factory, error) {
	fn, ok := Get(name)
	builtin, needsFFmpeg := ffmpegEncoders[name]
	if !needsFFmpeg {
		if !ok {
			return nil, fmt.Errorf("encoder %q not available (have %v)", name, Names())
		}
		return fn, nil
	}
	if _, err := exec.LookPath(ffmpegPath); err != nil {
		return nil, fmt.Errorf("encoder %q needs ffmpeg: %w", name, err)
	}
	if !ok {
		fn = builtin
	}
	return fn, nil
}

// Open validates opts and opens the named encoder. The built-in encoders
// are registered on first use. Failures are reported as *models.EncodeError.
func Open(ctx context.Context, name string, opts Options) (Handle, error) {
	defaultsOnce.Do(RegisterDefaults)
	if opts.FPS <= 0 {
		return nil, &models.EncodeError{Op: "open", Err: fmt.Errorf("fps must be positive, got %d", opts.FPS)}
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, &models.EncodeError{Op: "open", Err: fmt.Errorf("invalid frame size %dx%d", opts.Width, opts.Height)}
	}
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = config.GetFFmpegPath()
	}
	fn, err := resolve(name, opts.FFmpegPath)
	if err != nil {
		return nil, &models.EncodeError{Op: "open", Err: err}
	}
	h, err := fn(ctx, opts)
	if err != nil {
		return nil, &models.EncodeError{Op: "open", Err: err}
	}
	logger.Debugf("encoder [%s] opened %s (%dx%d @ %d fps)", name, opts.Output, opts.Width, opts.Height, opts.FPS)
	return h, nil
}

// checkFrame rejects frames whose size differs from the video size.
func checkFrame(img *image.RGBA, opts Options) error {
	if img == nil {
		return &models.EncodeError{Op: "write", Err: fmt.Errorf("nil frame")}
	}
	if size := img.Bounds().Size(); size.X != opts.Width || size.Y != opts.Height {
		return &models.EncodeError{Op: "write", Err: fmt.Errorf("frame is %dx%d, video is %dx%d", size.X, size.Y, opts.Width, opts.Height)}
	}
	return nil
}
