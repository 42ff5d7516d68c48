package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"album-viewer/internal/apperr"
	"album-viewer/internal/logging"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// writeJSON encodes v as JSON and writes it to the response writer.
// Encoding errors are only logged since the status line is already sent.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// respondJSON writes v with the given status code.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

// writeError maps err onto a status code. Server-side failures are logged
// and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.Error("%s %s: %v", r.Method, r.URL.Path, err)
		writeJSONError(w, "internal server error", status)
		return
	}
	logging.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	writeJSONError(w, err.Error(), status)
}

// invalid wraps a parameter problem as invalid input.
func invalid(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, apperr.ErrInvalidInput)...)
}

// albumID reads the {id} route variable.
func albumID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, invalid("album id %q", raw)
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid("%s must be an integer", name)
	}
	return v, nil
}

// decodeJSON decodes a bounded request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return invalid("request body exceeds %d bytes", maxJSONBody)
		}
		return invalid("malformed JSON body: %v", err)
	}
	return nil
}
