// Package layers validates layer sources and aligns them into a LayerSet of
// equal-length path sequences.
package layers

import (
	"fmt"

	"layercast/models"
)

// Job is one frame's worth of compositing work: the frame index and the path
// of each layer's image at that index, bottom layer first.
type Job struct {
	Index int
	Paths []string
}

// LayerSet is an immutable, normalized stack of layers. Index 0 is the
// bottom layer. Every layer has exactly NumFrames paths.
type LayerSet struct {
	layers    [][]string
	numFrames int
}

// Normalize validates layers and pads every layer shorter than the longest
// one by repeating its last path, freezing it on its final frame. The input
// slices are not modified.
func Normalize(layers [][]string) (*LayerSet, error) {
	if len(layers) == 0 {
		return nil, &models.ValidationError{Field: "layers", Reason: "at least one layer is required"}
	}

	numFrames := 0
	for i, l := range layers {
		if len(l) == 0 {
			return nil, &models.ValidationError{Field: fmt.Sprintf("layers[%d]", i), Reason: "layer has no frames"}
		}
		if len(l) > numFrames {
			numFrames = len(l)
		}
	}

	padded := make([][]string, len(layers))
	for i, l := range layers {
		p := make([]string, numFrames)
		copy(p, l)
		last := l[len(l)-1]
		for j := len(l); j < numFrames; j++ {
			p[j] = last
		}
		padded[i] = p
	}
	return &LayerSet{layers: padded, numFrames: numFrames}, nil
}

// NumFrames returns the frame count shared by all layers.
func (s *LayerSet) NumFrames() int { return s.numFrames }

// NumLayers returns the number of layers.
func (s *LayerSet) NumLayers() int { return len(s.layers) }

// Layer returns a copy of layer i's padded path sequence.
func (s *LayerSet) Layer(i int) []string {
	out := make([]string, len(s.layers[i]))
	copy(out, s.layers[i])
	return out
}

// PathsAt returns each layer's path at frame, bottom layer first.
func (s *LayerSet) PathsAt(frame int) []string {
	paths := make([]string, len(s.layers))
	for i, l := range s.layers {
		paths[i] = l[frame]
	}
	return paths
}

// Jobs builds one Job per frame in ascending frame order.
func (s *LayerSet) Jobs() []Job {
	jobs := make([]Job, s.numFrames)
	for i := range jobs {
		jobs[i] = Job{Index: i, Paths: s.PathsAt(i)}
	}
	return jobs
}

// ValidateSelection checks that every selected layer index exists.
func (s *LayerSet) ValidateSelection(sel models.EffectSelection) error {
	return ValidateSelection(sel, len(s.layers))
}

// ValidateSelection checks effect layer indices against a layer count.
func ValidateSelection(sel models.EffectSelection, numLayers int) error {
	check := func(field string, set []int) error {
		for _, idx := range set {
			if idx < 0 || idx >= numLayers {
				return &models.ValidationError{
					Field:  field,
					Reason: fmt.Sprintf("layer index %d out of range [0,%d)", idx, numLayers),
				}
			}
		}
		return nil
	}
	if err := check("blurLayers", sel.BlurLayers); err != nil {
		return err
	}
	return check("fogLayers", sel.FogLayers)
}
