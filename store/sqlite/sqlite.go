// Package sqlite implements l3agi.MessageStore and l3agi.RunLogStore using
// pure-Go SQLite. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	l3agi "github.com/psyuktha/L3AGI"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs with timing and row counts.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store persists chat messages and run logs in a local SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ l3agi.MessageStore = (*Store)(nil)
	_ l3agi.RunLogStore  = (*Store)(nil)
)

const defaultLimit = 100

// New creates a Store using a local SQLite file at dbPath.
// All goroutines share one connection (SetMaxOpenConns(1)) so concurrent
// writers never hit SQLITE_BUSY.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
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
			created_at INTEGER NOT NULL
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
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS run_logs_session_idx ON run_logs(session_id, created_at)`,
	}
	for _, ddl := range stmts {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("sqlite: init: %w", err)
		}
	}
	s.logger.Debug("sqlite: init done", "duration", time.Since(start))
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StoreMessage inserts or replaces a chat message.
func (s *Store) StoreMessage(ctx context.Context, msg l3agi.ChatMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, parent_id, agent_id, voice_url, sender_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   content = excluded.content,
		   voice_url = excluded.voice_url`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.ParentID, msg.AgentID, msg.VoiceURL, msg.SenderName, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: store message: %w", err)
	}
	s.logger.Debug("sqlite: message stored", "id", msg.ID, "session_id", msg.SessionID, "role", msg.Role)
	return nil
}

// GetMessages returns the most recent messages of a session, oldest first.
func (s *Store) GetMessages(ctx context.Context, sessionID string, limit int) ([]l3agi.ChatMessage, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, parent_id, agent_id, voice_url, sender_name, created_at
		 FROM chat_messages
		 WHERE session_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get messages: %w", err)
	}
	defer rows.Close()

	var messages []l3agi.ChatMessage
	for rows.Next() {
		var m l3agi.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.ParentID, &m.AgentID, &m.VoiceURL, &m.SenderName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate messages: %w", err)
	}
	slices.Reverse(messages)
	return messages, nil
}

// CountMessages returns how many messages a session has.
func (s *Store) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_messages WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count messages: %w", err)
	}
	return n, nil
}

// StoreRunLog inserts a run log entry.
func (s *Store) StoreRunLog(ctx context.Context, l l3agi.RunLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_logs (id, session_id, agent_id, kind, name, input, output, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.SessionID, l.AgentID, l.Kind, l.Name, l.Input, l.Output, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: store run log: %w", err)
	}
	return nil
}

// ListRunLogs returns a session's run logs, oldest first.
func (s *Store) ListRunLogs(ctx context.Context, sessionID string, limit int) ([]l3agi.RunLog, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, agent_id, kind, name, input, output, created_at
		 FROM run_logs
		 WHERE session_id = ?
		 ORDER BY created_at ASC, rowid ASC
		 LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list run logs: %w", err)
	}
	defer rows.Close()

	var logs []l3agi.RunLog
	for rows.Next() {
		var l l3agi.RunLog
		if err := rows.Scan(&l.ID, &l.SessionID, &l.AgentID, &l.Kind, &l.Name, &l.Input, &l.Output, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan run log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate run logs: %w", err)
	}
	return logs, nil
}
