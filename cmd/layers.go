package cmd

import (
	"github.com/spf13/cobra"

	"layercast/models"
)

// layerFlags are shared by merge and preview.
type layerFlags struct {
	layers     []string
	blur       float64
	fog        int
	blurLayers []int
	fogLayers  []int
}

func (f *layerFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringArrayVarP(&f.layers, "layer", "l", nil, "layer source, bottom first: an image file or a directory of frames (repeatable)")
	fl.Float64Var(&f.blur, "blur", 0, "gaussian blur radius for --blur-layers")
	fl.IntVar(&f.fog, "fog", 0, "fog opacity 0-255 for --fog-layers")
	fl.IntSliceVar(&f.blurLayers, "blur-layers", nil, "0-based layer indices to blur")
	fl.IntSliceVar(&f.fogLayers, "fog-layers", nil, "0-based layer indices to fog")
}

// sources returns --layer values followed by positional arguments.
func (f *layerFlags) sources(args []string) []string {
	return append(append([]string(nil), f.layers...), args...)
}

func (f *layerFlags) selection() models.EffectSelection {
	return models.EffectSelection{BlurLayers: f.blurLayers, FogLayers: f.fogLayers}
}

func (f *layerFlags) params() models.EffectParams {
	return models.EffectParams{BlurAmount: f.blur, FogAmount: f.fog}
}
