// Package store keeps per-session state for the lifetime of a session.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/studymate/internal/domain"
)

// ErrSessionNotFound is returned when appending to a session that does not
// exist (never created, or already ended).
var ErrSessionNotFound = errors.New("session not found")

// Repository defines where session state lives while a session is open.
// Chat turns and planner entries are append-only.
type Repository interface {
	// CreateSession starts an empty session.
	CreateSession(ctx context.Context, id string, now time.Time) (*domain.Session, error)

	// GetSession returns a snapshot of the session, or nil if it does not exist.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// TouchSession records activity on the session.
	TouchSession(ctx context.Context, id string, now time.Time) error

	// AppendChatTurns appends all turns atomically, in order.
	AppendChatTurns(ctx context.Context, id string, turns ...domain.ChatTurn) error

	// AppendPlannerEntry appends a validated planner entry.
	AppendPlannerEntry(ctx context.Context, id string, entry domain.PlannerEntry) error

	// DeleteSession ends the session and drops its state.
	DeleteSession(ctx context.Context, id string) error

	// GetExpiredSessions lists sessions last seen before cutoff.
	GetExpiredSessions(ctx context.Context, cutoff time.Time) ([]string, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend.
	Close() error
}
