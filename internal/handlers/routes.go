package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"album-viewer/internal/middleware"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	MetricsEnabled bool
}

// NewRouter registers every API route on a new mux.Router.
func NewRouter(h *Handlers, opts RouterOptions) *mux.Router {
	r := mux.NewRouter()
	if opts.MetricsEnabled {
		r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
		r.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Albums
	api.HandleFunc("/albums", h.ListAlbums).Methods(http.MethodGet)
	api.HandleFunc("/albums/scan", h.ScanAlbums).Methods(http.MethodPost)
	api.HandleFunc("/albums/refresh", h.RefreshAlbums).Methods(http.MethodPost)
	api.HandleFunc("/albums/by-path", h.GetAlbumByPath).Methods(http.MethodGet)
	api.HandleFunc("/albums/{id:[0-9]+}", h.GetAlbum).Methods(http.MethodGet)
	api.HandleFunc("/albums/{id:[0-9]+}", h.DeleteAlbum).Methods(http.MethodDelete)
	api.HandleFunc("/albums/{id:[0-9]+}/entries", h.ListEntries).Methods(http.MethodGet)
	api.HandleFunc("/albums/{id:[0-9]+}/browse", h.BrowseAlbum).Methods(http.MethodGet)

	// Covers and thumbnails
	api.HandleFunc("/albums/{id:[0-9]+}/cover", h.GetCover).Methods(http.MethodGet)
	api.HandleFunc("/albums/{id:[0-9]+}/cover", h.SetCover).Methods(http.MethodPost)
	api.HandleFunc("/albums/{id:[0-9]+}/cover/crop", h.SetCrop).Methods(http.MethodPost)
	api.HandleFunc("/thumbnail", h.GetThumbnail).Methods(http.MethodGet)

	// Cache and settings
	api.HandleFunc("/cache/cleanup", h.CleanupCache).Methods(http.MethodPost)
	api.HandleFunc("/cache/stats", h.CacheStats).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.GetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.PutSettings).Methods(http.MethodPut)

	api.HandleFunc("/events/ws", h.Events).Methods(http.MethodGet)

	return r
}
