package models

// WriterJob describes one publish destination for a finished video.
type WriterJob struct {
	Type        string            // "directServe", "s3", "gcs" or "sftp"
	Credentials map[string]string // backend specific access info
}

// EffectSelection lists the 0-based layer indices each effect applies to.
// A layer may appear in both, either or neither list.
type EffectSelection struct {
	BlurLayers []int `json:"blurLayers,omitempty"`
	FogLayers  []int `json:"fogLayers,omitempty"`
}

// Blurs reports whether layer i is selected for blur.
func (s EffectSelection) Blurs(i int) bool { return contains(s.BlurLayers, i) }

// Fogs reports whether layer i is selected for fog.
func (s EffectSelection) Fogs(i int) bool { return contains(s.FogLayers, i) }

func contains(set []int, i int) bool {
	for _, v := range set {
		if v == i {
			return true
		}
	}
	return false
}

// EffectParams holds effect strengths. Zero disables an effect regardless of
// the selection.
type EffectParams struct {
	BlurAmount float64 `json:"blurAmount"` // gaussian radius, >= 0
	FogAmount  int     `json:"fogAmount"`  // white overlay opacity, 0-255
}

// MergeSpec is everything a caller supplies for one merge run.
type MergeSpec struct {
	// Layer sources, bottom first. Each entry is either a single image file
	// or a directory of images.
	Layers []string `json:"layers"`
	Output string   `json:"output"`
	FPS    int      `json:"fps"`

	EffectSelection
	EffectParams

	Workers int    `json:"workers,omitempty"` // 0 = one per CPU
	Encoder string `json:"encoder,omitempty"` // registry name, empty = configured default
	Preview bool   `json:"preview,omitempty"` // also build the in-memory preview cache

	// Publishing. StorageKeys maps a backend type to a key in the
	// credentials store.
	StorageKeys        map[string]string `json:"storageKeys,omitempty"`
	DirectHost         bool              `json:"directHost,omitempty"`
	SubDir             string            `json:"subDir,omitempty"`
	CompletionCallback string            `json:"completionCallback,omitempty"`
	CallbackHeaders    map[string]string `json:"callbackHeaders,omitempty"`
}
