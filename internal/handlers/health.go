package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"album-viewer/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

const healthPingTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Error   string `json:"error,omitempty"`

	// Library totals
	FolderAlbums int   `json:"folderAlbums"`
	ZipAlbums    int   `json:"zipAlbums"`
	ThumbCount   int64 `json:"thumbCount"`
	ThumbBytes   int64 `json:"thumbBytes"`

	// System info
	GoVersion        string `json:"goVersion"`
	NumCPU           int    `json:"numCpu"`
	NumGoroutine     int    `json:"numGoroutine"`
	DecodesPaused    bool   `json:"decodesPaused"`
	EventSubscribers int    `json:"eventSubscribers"`
}

// HealthCheck reports database reachability and library totals. It
// answers 503 when the database cannot be reached.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if h.memory != nil {
		response.DecodesPaused = h.memory.IsPaused()
	}
	if h.bus != nil {
		response.EventSubscribers = h.bus.Subscribers()
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			response.Status = statusDegraded
			response.Ready = false
			response.Error = err.Error()
		} else {
			stats := h.store.GetStats()
			response.FolderAlbums = stats.FolderAlbums
			response.ZipAlbums = stats.ZipAlbums
			response.ThumbCount = stats.ThumbCount
			response.ThumbBytes = stats.ThumbBytes
		}
	}

	status := http.StatusOK
	if !response.Ready {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}
