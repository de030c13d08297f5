// Package api provides HTTP handlers for the StudyMate panels.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/studymate/internal/domain"
	"github.com/ashureev/studymate/internal/store"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// KindSessionEnded tells the page to reload and start over.
const KindSessionEnded = "session_ended"

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, kind, message string) {
	JSON(w, status, ErrorBody{Error: message, Kind: kind})
}

// NotFound answers unknown API paths.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusNotFound, domain.KindValidation, "not found")
}

// MethodNotAllowed answers known API paths called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusMethodNotAllowed, domain.KindValidation, "method not allowed")
}

// StatusFor maps an error to its HTTP status and response body.
func StatusFor(err error) (int, ErrorBody) {
	if errors.Is(err, store.ErrSessionNotFound) {
		return http.StatusGone, ErrorBody{Error: "Your session has ended. Reload the page to start a new one.", Kind: KindSessionEnded}
	}

	kind, message := domain.Classify(err)
	status := http.StatusInternalServerError
	switch kind {
	case domain.KindValidation:
		status = http.StatusUnprocessableEntity
	case domain.KindExternalService:
		status = http.StatusBadGateway
		var ext *domain.ExternalServiceError
		if errors.As(err, &ext) && ext.Timeout {
			status = http.StatusGatewayTimeout
		}
	}
	return status, ErrorBody{Error: message, Kind: kind}
}

// WriteError classifies err and writes it. Internal errors are logged.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := StatusFor(err)
	if status >= http.StatusInternalServerError && body.Kind == domain.KindInternal {
		slog.Error("Request failed", "path", r.URL.Path, "error", err)
	}
	JSON(w, status, body)
}

// decodeJSON reads a bounded JSON body into dst. Failures are reported as
// validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if maxBytes <= 0 {
		maxBytes = defaultMaxRequestBodySize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &domain.ValidationError{Message: "The text is too long."}
		}
		return &domain.ValidationError{Message: "Invalid request body."}
	}
	return nil
}
