package merge

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"layercast/config"
	"layercast/layers"
	"layercast/models"
)

// DefaultExt is appended to outputs that have no extension.
const DefaultExt = ".mp4"

// Validate checks a spec before any file is touched. Effect layer indices
// are checked against the number of layer sources.
func Validate(spec *models.MergeSpec) error {
	if spec == nil {
		return &models.ValidationError{Field: "spec", Reason: "missing"}
	}
	if len(spec.Layers) == 0 {
		return &models.ValidationError{Field: "layers", Reason: "at least one layer is required"}
	}
	if strings.TrimSpace(spec.Output) == "" {
		return &models.ValidationError{Field: "output", Reason: "output path is required"}
	}
	if spec.FPS <= 0 {
		return &models.ValidationError{Field: "fps", Reason: fmt.Sprintf("must be positive, got %d", spec.FPS)}
	}
	if spec.BlurAmount < 0 || math.IsNaN(spec.BlurAmount) || math.IsInf(spec.BlurAmount, 0) {
		return &models.ValidationError{Field: "blurAmount", Reason: fmt.Sprintf("must be a finite value >= 0, got %v", spec.BlurAmount)}
	}
	if spec.FogAmount < 0 || spec.FogAmount > 255 {
		return &models.ValidationError{Field: "fogAmount", Reason: fmt.Sprintf("must be in [0,255], got %d", spec.FogAmount)}
	}
	if spec.Workers < 0 {
		return &models.ValidationError{Field: "workers", Reason: fmt.Sprintf("must be >= 0, got %d", spec.Workers)}
	}
	return layers.ValidateSelection(spec.EffectSelection, len(spec.Layers))
}

// withDefaults fills in the encoder and output extension.
func withDefaults(spec models.MergeSpec) models.MergeSpec {
	if spec.Encoder == "" {
		spec.Encoder = config.GetEncoderName()
	}
	if spec.Output != "" && filepath.Ext(spec.Output) == "" {
		spec.Output += DefaultExt
	}
	return spec
}
