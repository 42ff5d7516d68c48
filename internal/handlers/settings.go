package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// GetSettings returns the effective settings.
func (h *Handlers) GetSettings(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, http.StatusOK, h.lib.Settings())
}

// PutSettings stores the provided keys. Keys with a null value are ignored.
func (h *Handlers) PutSettings(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	for k, v := range body {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			delete(body, k)
		}
	}

	settings, err := h.lib.PutSettings(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}
