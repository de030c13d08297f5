// Package session ends sessions that have been idle longer than their TTL.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/studymate/internal/store"
)

// Ender drops the state of one session.
type Ender interface {
	EndSession(ctx context.Context, sessionID string) error
}

// RunTTLWorker sweeps for idle sessions every interval until ctx is done.
func RunTTLWorker(ctx context.Context, repo store.Repository, ender Ender, ttl, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("TTL worker started", "interval", interval, "ttl", ttl)

	for {
		select {
		case now := <-ticker.C:
			Sweep(ctx, repo, ender, now.Add(-ttl))
		case <-ctx.Done():
			slog.Info("TTL worker shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

// Sweep ends every session last seen before cutoff and returns how many were ended.
func Sweep(ctx context.Context, repo store.Repository, ender Ender, cutoff time.Time) int {
	expired, err := repo.GetExpiredSessions(ctx, cutoff)
	if err != nil {
		slog.Error("TTL worker failed to get expired sessions", "error", err)
		return 0
	}
	if len(expired) == 0 {
		return 0
	}

	slog.Info("TTL worker found expired sessions", "count", len(expired))
	ended := 0
	for _, id := range expired {
		if err := ender.EndSession(ctx, id); err != nil {
			slog.Warn("TTL worker failed to end session", "session_id", id, "error", err)
			continue
		}
		ended++
	}
	slog.Info("TTL worker cleanup completed", "ended", ended)
	return ended
}
