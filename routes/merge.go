package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"layercast/config"
	"layercast/logger"
	"layercast/merge"
	"layercast/models"
	"layercast/utils"
)

// verifyJWT verifies the JWT from the request and returns the claims
func verifyJWT(r *http.Request) (*models.MergeJWT, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("authorization header required")
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return nil, fmt.Errorf("invalid authorization header format")
	}

	secret := config.GetJWTSecret()
	if len(secret) == 0 {
		return nil, fmt.Errorf("server has no JWT secret configured")
	}
	return utils.VerifyMergeJWT(token, utils.VerifyConfig{
		SecretKey:      secret,
		ExpectedIssuer: config.GetJWTIssuer(),
	})
}

// MergeResponse is returned when a run is accepted.
type MergeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// errorResponse writes a JSON error with the error's kind.
func errorResponse(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"kind":  models.ErrorKind(err),
	})
}

// MergeHandler queues the merge described by the bearer token's claims.
func MergeHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Merge request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := verifyJWT(r)
	if err != nil {
		logger.Warnf("Rejected merge token: %v", err)
		http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
		return
	}

	id, err := merge.Submit(claims.Merge)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			errorResponse(w, http.StatusBadRequest, err)
			return
		}
		logger.Errorf("Failed to queue merge: %v", err)
		errorResponse(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(MergeResponse{ID: id, Status: "pending"})
}
