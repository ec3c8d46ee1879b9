package routes

import (
	"encoding/json"
	"fmt"
	"net/http"

	"layercast/logger"
	"layercast/merge"
)

// RunStatusHandler returns the state and progress of a run by id
func RunStatusHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Run status request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodGet {
		logger.Warnf("Invalid method for status endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		logger.Warn("Missing id parameter in status request")
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	status, exists := merge.GetRunStatus(id)
	if !exists {
		logger.Warnf("Run not found: %s", id)
		http.Error(w, fmt.Sprintf("Run %s not found", id), http.StatusNotFound)
		return
	}

	logger.Debugf("Run status: id=%s, state=%s, progress=%.1f", id, status.State, status.Progress)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		logger.Errorf("Failed to encode status response: %v", err)
	}
}
