package routes

import (
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"layercast/logger"
	"layercast/preview"
)

// PreviewHandler serves one cached preview frame of a run as PNG.
func PreviewHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	frame, err := strconv.Atoi(r.URL.Query().Get("frame"))
	if id == "" || err != nil {
		http.Error(w, "id and numeric frame parameters required", http.StatusBadRequest)
		return
	}

	cache, ok := preview.Default.Get(id)
	if !ok {
		http.Error(w, fmt.Sprintf("No preview cached for run %s", id), http.StatusNotFound)
		return
	}
	img, ok := cache.Frame(frame)
	if !ok {
		http.Error(w, fmt.Sprintf("Frame %d not in preview (0-%d)", frame, cache.Len()-1), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		logger.Errorf("Failed to encode preview frame: %v", err)
	}
}
