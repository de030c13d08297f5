// Package identity ties each browser session to a StudyMate session id.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/studymate/internal/store"
)

// CookieName is the browser-session cookie carrying the session id.
const CookieName = "studymate_session"

type contextKey int

const sessionIDKey contextKey = iota

// SessionIDFromContext extracts the session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSessionID returns a copy of ctx carrying sessionID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func isValidSessionID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.Version() == 4 && parsed.String() == id
}

// setCookie writes a cookie without Max-Age/Expires so it ends with the
// browser session.
func setCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// ClearCookie removes the session cookie from the browser.
func ClearCookie(w http.ResponseWriter, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// resolveSession returns the id of a live session for the request, starting a
// new one when the cookie is missing, malformed or refers to an ended session.
func resolveSession(w http.ResponseWriter, r *http.Request, repo store.Repository, isDev bool) (string, error) {
	ctx := r.Context()
	now := time.Now()

	if c, err := r.Cookie(CookieName); err == nil && isValidSessionID(c.Value) {
		switch err := repo.TouchSession(ctx, c.Value, now); {
		case err == nil:
			return c.Value, nil
		case !errors.Is(err, store.ErrSessionNotFound):
			return "", err
		}
		slog.Debug("Session cookie refers to ended session, starting a new one")
	}

	id := uuid.NewString()
	if _, err := repo.CreateSession(ctx, id, now); err != nil {
		return "", err
	}
	setCookie(w, id, isDev)
	slog.Info("Session started", "session_id", id)
	return id, nil
}

// Middleware injects the session ID into the request context, creating the
// session on first contact.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := resolveSession(w, r, repo, isDev)
			if err != nil {
				slog.Error("Failed to establish session", "error", err)
				http.Error(w, `{"error":"failed to establish session","kind":"internal"}`, http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}
