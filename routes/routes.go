package routes

import (
	"net/http"

	"layercast/config"
)

// Register wires every endpoint into mux.
func Register(mux *http.ServeMux) {
	mux.HandleFunc("/merge", MergeHandler)
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/version", VersionHandler)
	mux.HandleFunc("/status", RunStatusHandler)
	mux.HandleFunc("/cancel", CancelRunHandler)
	mux.HandleFunc("/preview", PreviewHandler)
	mux.HandleFunc("/credentials", RegisterCredentialsHandler)
	mux.HandleFunc("/failures", FailureQueryHandler)
	mux.HandleFunc("/failures/list", FailureListHandler)
	mux.HandleFunc("/success", SuccessQueryHandler)
	mux.HandleFunc("/success/list", SuccessListHandler)
	mux.Handle("/videos/", http.StripPrefix("/videos/", http.FileServer(http.Dir(config.GetDirectServeBaseDir()))))
}
