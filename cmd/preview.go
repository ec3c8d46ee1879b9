package cmd

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"layercast/compositor"
	"layercast/layers"
	"layercast/preview"
)

var (
	previewLayers layerFlags
	previewFrame  int
	previewOutput string
	previewThumb  bool
	previewAll    bool
)

var previewCmd = &cobra.Command{
	Use:   "preview [layer...]",
	Short: "Composite a single frame, or every frame as thumbnails, to PNG",
	Example: `  layercast preview bg/ logo.png --frame 12 -o frame.png
  layercast preview bg/ logo.png --all -o thumbs/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := layers.Resolve(previewLayers.sources(args))
		if err != nil {
			return err
		}
		set, err := layers.Normalize(sources)
		if err != nil {
			return err
		}
		if err := set.ValidateSelection(previewLayers.selection()); err != nil {
			return err
		}
		canvas, err := compositor.ProbeCanvas(set.Layer(0)[0])
		if err != nil {
			return err
		}
		comp := compositor.New(canvas, previewLayers.selection(), previewLayers.params())

		if previewAll {
			dir := previewOutput
			if !cmd.Flags().Changed("output") {
				dir = "preview"
			}
			return writeAllPreviews(cmd, set, comp, dir)
		}

		if previewFrame < 0 || previewFrame >= set.NumFrames() {
			return fmt.Errorf("frame %d out of range [0,%d)", previewFrame, set.NumFrames())
		}
		frame, err := comp.CompositeFrame(cmd.Context(), previewFrame, set.PathsAt(previewFrame))
		if err != nil {
			return err
		}

		var out image.Image = frame
		if previewThumb {
			out = preview.Thumbnail(frame, preview.ThumbWidth, preview.ThumbHeight)
		}
		if err := writePNGFile(previewOutput, out); err != nil {
			return err
		}
		fmt.Printf("frame %d of %d written to %s\n", previewFrame, set.NumFrames(), previewOutput)
		return nil
	},
}

// writeAllPreviews builds the sequential preview cache, keeps it as the
// process preview and writes each thumbnail into dir.
func writeAllPreviews(cmd *cobra.Command, set *layers.LayerSet, comp *compositor.Compositor, dir string) error {
	cache, err := preview.Build(cmd.Context(), "cli", set, comp)
	if err != nil {
		return err
	}
	preview.Default.Set(cache)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for i := 0; i < cache.Len(); i++ {
		img, ok := cache.Frame(i)
		if !ok {
			return fmt.Errorf("preview frame %d missing", i)
		}
		if err := writePNGFile(filepath.Join(dir, fmt.Sprintf("frame_%05d.png", i)), img); err != nil {
			return err
		}
	}
	fmt.Printf("%d preview frames written to %s\n", cache.Len(), dir)
	return nil
}

func writePNGFile(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	previewLayers.register(previewCmd)
	fl := previewCmd.Flags()
	fl.IntVar(&previewFrame, "frame", 0, "frame index to render")
	fl.StringVarP(&previewOutput, "output", "o", "preview.png", "PNG file to write, or the directory for --all")
	fl.BoolVar(&previewThumb, "thumb", false, "scale down to fit 400x300")
	fl.BoolVar(&previewAll, "all", false, "composite every frame in order and write 400x300 thumbnails")
	rootCmd.AddCommand(previewCmd)
}
