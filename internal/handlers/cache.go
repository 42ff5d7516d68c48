package handlers

import "net/http"

// CleanupCache evicts least recently used thumbnails down to the budget.
func (h *Handlers) CleanupCache(w http.ResponseWriter, r *http.Request) {
	res, err := h.lib.Cleanup(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// CacheStatsResponse reports the thumbnail cache size against its budget.
type CacheStatsResponse struct {
	Count    int64 `json:"count"`
	Bytes    int64 `json:"bytes"`
	MaxBytes int64 `json:"max_bytes"`
}

func (h *Handlers) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.lib.CacheStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, CacheStatsResponse{
		Count:    stats.Count,
		Bytes:    stats.Bytes,
		MaxBytes: h.lib.Settings().CacheMaxBytes,
	})
}
