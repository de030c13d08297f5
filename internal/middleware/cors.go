// Package middleware provides HTTP middleware for the StudyMate API.
package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// CORS returns middleware that handles CORS headers. Credentials are only
// allowed for explicit origins, never for the "*" wildcard.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           300,
	}).Handler
}
