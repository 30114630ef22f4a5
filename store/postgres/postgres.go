// Package postgres implements l3agi.MessageStore and l3agi.RunLogStore on
// PostgreSQL.
//
// Store accepts an externally-owned connection (usually a *pgxpool.Pool)
// via constructor injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	l3agi "github.com/psyuktha/L3AGI"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const defaultLimit = 100

// Store persists chat messages and run logs.
type Store struct {
	db DB
}

var (
	_ l3agi.MessageStore = (*Store)(nil)
	_ l3agi.RunLogStore  = (*Store)(nil)
)

// New creates a Store on db. The caller owns db.
func New(db DB) *Store {
	return &Store{db: db}
}

// Connect opens a pool for databaseURL. The returned pool must be closed by
// the caller.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// Init creates the tables and indexes. Safe to call multiple times.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			parent_id TEXT NOT NULL DEFAULT '',
			agent_id TEXT NOT NULL DEFAULT '',
			voice_url TEXT NOT NULL DEFAULT '',
			sender_name TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS chat_messages_session_idx ON chat_messages(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS run_logs (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			agent_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			input TEXT NOT NULL DEFAULT '',
			output TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS run_logs_session_idx ON run_logs(session_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// Close is a no-op. The pool is owned by the caller.
func (s *Store) Close() error { return nil }

// StoreMessage inserts or replaces a chat message.
func (s *Store) StoreMessage(ctx context.Context, msg l3agi.ChatMessage) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, parent_id, agent_id, voice_url, sender_name, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		   content = EXCLUDED.content,
		   voice_url = EXCLUDED.voice_url`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.ParentID, msg.AgentID, msg.VoiceURL, msg.SenderName, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: store message: %w", err)
	}
	return nil
}

// GetMessages returns the most recent messages of a session,
// ordered chronologically (oldest first).
func (s *Store) GetMessages(ctx context.Context, sessionID string, limit int) ([]l3agi.ChatMessage, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, session_id, role, content, parent_id, agent_id, voice_url, sender_name, created_at
		 FROM chat_messages
		 WHERE session_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: get messages: %w", err)
	}
	defer rows.Close()

	var messages []l3agi.ChatMessage
	for rows.Next() {
		var m l3agi.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.ParentID, &m.AgentID, &m.VoiceURL, &m.SenderName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate messages: %w", err)
	}
	slices.Reverse(messages)
	return messages, nil
}

// StoreRunLog inserts a run log entry.
func (s *Store) StoreRunLog(ctx context.Context, l l3agi.RunLog) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO run_logs (id, session_id, agent_id, kind, name, input, output, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.SessionID, l.AgentID, l.Kind, l.Name, l.Input, l.Output, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: store run log: %w", err)
	}
	return nil
}

// ListRunLogs returns a session's run logs, oldest first.
func (s *Store) ListRunLogs(ctx context.Context, sessionID string, limit int) ([]l3agi.RunLog, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, session_id, agent_id, kind, name, input, output, created_at
		 FROM run_logs
		 WHERE session_id = $1
		 ORDER BY created_at ASC, id ASC
		 LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list run logs: %w", err)
	}
	defer rows.Close()

	var logs []l3agi.RunLog
	for rows.Next() {
		var l l3agi.RunLog
		if err := rows.Scan(&l.ID, &l.SessionID, &l.AgentID, &l.Kind, &l.Name, &l.Input, &l.Output, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan run log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate run logs: %w", err)
	}
	return logs, nil
}

// CountMessages returns how many messages a session has.
func (s *Store) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages WHERE session_id = $1`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count messages: %w", err)
	}
	return n, nil
}
