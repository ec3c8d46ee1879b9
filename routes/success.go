package routes

import (
	"encoding/json"
	"net/http"

	"layercast/logger"
	"layercast/success"
)

// SuccessQueryHandler handles queries for completed runs
func SuccessQueryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id parameter required", http.StatusBadRequest)
		return
	}

	record, err := success.GetSuccess(id)
	if err != nil {
		logger.Errorf("Failed to query success for run %s: %v", id, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if record == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      id,
			"status":  "not_found",
			"message": "No success record found for this run",
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":             record.ID,
		"status":         "success",
		"timestamp":      record.Timestamp,
		"output":         record.Output,
		"frames":         record.Frames,
		"render_time_ms": record.RenderTimeMS,
		"published":      record.Published,
		"spec":           record.Spec,
	})
}

// SuccessListHandler handles listing all success records (admin endpoint)
func SuccessListHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := success.ListSuccessRecords()
	if err != nil {
		logger.Errorf("Failed to list success records: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success_records": records,
		"count":           len(records),
	})
}
