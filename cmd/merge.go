package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"layercast/logger"
	"layercast/merge"
	"layercast/models"
)

var (
	mergeLayers  layerFlags
	mergeOutput  string
	mergeFPS     int
	mergeWorkers int
	mergeEncoder string
	mergeFFmpeg  string
	mergeQuiet   bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge [layer...]",
	Short: "Merge layers into a video",
	Example: `  layercast merge -l bg/ -l clouds/ -l logo.png --fps 24 --fog 90 --fog-layers 1 -o out.mp4
  layercast merge bg/ fg/ -o out.mp4 --encoder ffmpeg-frames`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := models.MergeSpec{
			Layers:          mergeLayers.sources(args),
			Output:          mergeOutput,
			FPS:             mergeFPS,
			EffectSelection: mergeLayers.selection(),
			EffectParams:    mergeLayers.params(),
			Workers:         mergeWorkers,
			Encoder:         mergeEncoder,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var bar *progressbar.ProgressBar
		opts := merge.Options{FFmpegPath: mergeFFmpeg}
		if !mergeQuiet {
			bar = progressbar.NewOptions(100,
				progressbar.OptionSetDescription("Merging"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetRenderBlankState(true),
			)
			opts.Progress = func(p float64) { bar.Set(int(p)) }
			// The bar owns the terminal, the log file still gets everything.
			logger.SetOutput(io.Discard)
			defer logger.SetOutput(os.Stdout)
		}

		res, err := merge.Run(ctx, spec, opts)
		if bar != nil {
			bar.Exit()
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("interrupted: %w", err)
			}
			return fmt.Errorf("%s: %w", models.ErrorKind(err), err)
		}

		fmt.Printf("%s: %d frames, %dx%d @ %d fps, rendered in %v\n",
			res.Output, res.Frames, res.Canvas.X, res.Canvas.Y, spec.FPS, res.RenderTime.Round(time.Millisecond))
		return nil
	},
}

func init() {
	mergeLayers.register(mergeCmd)
	fl := mergeCmd.Flags()
	fl.StringVarP(&mergeOutput, "output", "o", "output.mp4", "video file to write")
	fl.IntVar(&mergeFPS, "fps", 24, "frames per second")
	fl.IntVar(&mergeWorkers, "workers", 0, "compositing workers (default LAYERCAST_WORKERS or one per CPU)")
	fl.StringVar(&mergeEncoder, "encoder", "", "ffmpeg, ffmpeg-frames or null (default LAYERCAST_ENCODER)")
	fl.StringVar(&mergeFFmpeg, "ffmpeg", "", "ffmpeg binary (default LAYERCAST_FFMPEG)")
	fl.BoolVarP(&mergeQuiet, "quiet", "q", false, "hide the progress bar")
	rootCmd.AddCommand(mergeCmd)
}

