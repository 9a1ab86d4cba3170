// Package handlers implements the JSON HTTP API. Handlers decode requests,
// take the caller's identity from the session, call the planner service
// with it explicitly and translate service errors into status codes.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"wanderplan/internal/planner"
)

// maxBodyBytes bounds request bodies; itinerary payloads are small.
const maxBodyBytes = 1 << 20

// writeJSON sends v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write json response failed", "error", err)
	}
}

// writeError sends {"error": msg} with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps a planner error kind to its HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, planner.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, planner.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, planner.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, planner.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError translates a planner error into a JSON response.
// Causes of server-side failures are logged, never echoed.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)

	var perr *planner.Error
	if !errors.As(err, &perr) {
		slog.Error("unclassified service error", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err, "path", r.URL.Path, "status", status)
	}

	body := map[string]any{"error": perr.Msg}
	if errors.Is(err, planner.ErrUpstream) && perr.UpstreamStatus != 0 {
		body["upstream_status"] = perr.UpstreamStatus
		if perr.UpstreamBody != "" {
			body["upstream_body"] = perr.UpstreamBody
		}
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// parseID parses a UUID path parameter. Malformed IDs are reported as 404,
// the same as IDs that do not exist.
func parseID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusNotFound, "preset not found")
		return uuid.Nil, false
	}
	return id, true
}
