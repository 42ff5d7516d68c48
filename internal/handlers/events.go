package handlers

import "net/http"

// Events upgrades the request to a websocket that streams scan and
// thumbnail events as {"event": ..., "data": ...} frames.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		writeJSONError(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	h.bus.ServeWS(w, r)
}
