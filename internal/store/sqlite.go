package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/studymate/internal/domain"
	"github.com/ashureev/studymate/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite. Rows are removed when the
// session ends; nothing outlives the session.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writers to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		last_seen_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_last_seen ON sessions(last_seen_at);

	CREATE TABLE IF NOT EXISTS chat_turns (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		speaker TEXT NOT NULL,
		message TEXT NOT NULL,
		PRIMARY KEY (session_id, seq)
	);

	CREATE TABLE IF NOT EXISTS planner_entries (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		subject TEXT NOT NULL,
		goal TEXT NOT NULL,
		deadline TEXT NOT NULL,
		PRIMARY KEY (session_id, seq)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// CreateSession starts an empty session, replacing any leftover state under the same id.
func (s *SQLiteStore) CreateSession(ctx context.Context, id string, now time.Time) (*domain.Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := deleteSessionRows(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, created_at, last_seen_at) VALUES (?, ?, ?)`,
			id, now.UnixMilli(), now.UnixMilli())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return domain.NewSession(id, time.UnixMilli(now.UnixMilli())), nil
}

// GetSession loads the session with its chat and plan, or nil if it does not exist.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var createdAt, lastSeen int64
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, last_seen_at FROM sessions WHERE id = ?`, id,
	).Scan(&createdAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	session := domain.NewSession(id, time.UnixMilli(createdAt))
	session.LastSeenAt = time.UnixMilli(lastSeen)

	if err := s.loadChat(ctx, session); err != nil {
		return nil, err
	}
	if err := s.loadPlan(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SQLiteStore) loadChat(ctx context.Context, session *domain.Session) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT speaker, message FROM chat_turns WHERE session_id = ? ORDER BY seq`, session.ID)
	if err != nil {
		return fmt.Errorf("query chat turns: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close chat turn rows", "error", closeErr)
		}
	}()

	for rows.Next() {
		var speaker, message string
		if err := rows.Scan(&speaker, &message); err != nil {
			return fmt.Errorf("scan chat turn: %w", err)
		}
		sp, ok := domain.ParseSpeaker(speaker)
		if !ok {
			return fmt.Errorf("unknown speaker %q in session %s", speaker, session.ID)
		}
		session.AppendChatTurn(sp, message)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate chat turns: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadPlan(ctx context.Context, session *domain.Session) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, goal, deadline FROM planner_entries WHERE session_id = ? ORDER BY seq`, session.ID)
	if err != nil {
		return fmt.Errorf("query planner entries: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close planner rows", "error", closeErr)
		}
	}()

	for rows.Next() {
		var subject, goal, deadline string
		if err := rows.Scan(&subject, &goal, &deadline); err != nil {
			return fmt.Errorf("scan planner entry: %w", err)
		}
		d, err := time.Parse(domain.DateLayout, deadline)
		if err != nil {
			return fmt.Errorf("parse deadline %q: %w", deadline, err)
		}
		if _, err := session.AppendPlannerEntry(subject, goal, d); err != nil {
			return fmt.Errorf("load planner entry: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate planner entries: %w", err)
	}
	return nil
}

// TouchSession updates last_seen_at.
func (s *SQLiteStore) TouchSession(ctx context.Context, id string, now time.Time) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, err := s.db.ExecContext(ctx, `UPDATE sessions SET last_seen_at = ? WHERE id = ?`, now.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// AppendChatTurns appends turns in one transaction.
func (s *SQLiteStore) AppendChatTurns(ctx context.Context, id string, turns ...domain.ChatTurn) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		next, err := nextSeq(ctx, tx, "chat_turns", id)
		if err != nil {
			return err
		}
		for i, t := range turns {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chat_turns (session_id, seq, speaker, message) VALUES (?, ?, ?, ?)`,
				id, next+int64(i), t.Speaker.String(), t.Message,
			); err != nil {
				return fmt.Errorf("insert chat turn: %w", err)
			}
		}
		return nil
	})
}

// AppendPlannerEntry appends a planner entry.
func (s *SQLiteStore) AppendPlannerEntry(ctx context.Context, id string, entry domain.PlannerEntry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		next, err := nextSeq(ctx, tx, "planner_entries", id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO planner_entries (session_id, seq, subject, goal, deadline) VALUES (?, ?, ?, ?, ?)`,
			id, next, entry.Subject, entry.Goal, entry.DeadlineString(),
		); err != nil {
			return fmt.Errorf("insert planner entry: %w", err)
		}
		return nil
	})
}

// DeleteSession removes the session and all of its rows, retrying with
// exponential backoff while the database is locked.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	err := shared.RetryOnConflict(ctx, 3, 100*time.Millisecond, func() error {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		return s.inTx(ctx, func(tx *sql.Tx) error {
			return deleteSessionRows(ctx, tx, id)
		})
	})
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// GetExpiredSessions lists sessions last seen before cutoff.
func (s *SQLiteStore) GetExpiredSessions(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions WHERE last_seen_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close expired sessions rows", "error", closeErr)
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired session row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired sessions: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("failed to roll back transaction", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// nextSeq checks the session exists and returns the next sequence number in table.
func nextSeq(ctx context.Context, tx *sql.Tx, table, id string) (int64, error) {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup session: %w", err)
	}

	var next int64
	// table is a fixed table name, never user input.
	query := `SELECT COALESCE(MAX(seq), -1) + 1 FROM ` + table + ` WHERE session_id = ?`
	if err := tx.QueryRowContext(ctx, query, id).Scan(&next); err != nil {
		return 0, fmt.Errorf("next %s seq: %w", table, err)
	}
	return next, nil
}

func deleteSessionRows(ctx context.Context, tx *sql.Tx, id string) error {
	for _, q := range []string{
		`DELETE FROM chat_turns WHERE session_id = ?`,
		`DELETE FROM planner_entries WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete session rows: %w", err)
		}
	}
	return nil
}

var _ Repository = (*SQLiteStore)(nil)
