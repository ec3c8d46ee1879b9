package routes

import (
	"errors"
	"fmt"
	"net/http"

	"layercast/logger"
	"layercast/merge"
)

// CancelRunHandler cancels a run that has not started processing
func CancelRunHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Cancel run request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodDelete {
		logger.Warnf("Invalid method for cancel endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		logger.Warn("Missing id parameter in cancel request")
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	logger.Infof("Attempting to cancel run: %s", id)
	if err := merge.CancelRun(id); err != nil {
		logger.Warnf("Failed to cancel run %s: %v", id, err)
		if errors.Is(err, merge.ErrRunNotFound) {
			http.Error(w, fmt.Sprintf("Run not found: %v", err), http.StatusNotFound)
		} else {
			http.Error(w, fmt.Sprintf("Cannot cancel run: %v", err), http.StatusConflict)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
