package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/stargate-rv/relay/internal/model/chat"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS turns (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	session_id TEXT NOT NULL,
	author TEXT NOT NULL,
	text TEXT NOT NULL,
	sketch TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, seq);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL DEFAULT 'active',
	actual_target_path TEXT NOT NULL DEFAULT '',
	modelled_image_path TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	completed_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS artifacts (
	session_id TEXT NOT NULL,
	path TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_session ON artifacts(session_id, created_at);
`

// SQLiteStore persists transcripts in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the database at path. Use
// ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Append stores one turn, generating id and timestamp when absent.
func (s *SQLiteStore) Append(ctx context.Context, turn chat.Turn) error {
	if turn.SessionID == "" {
		return nil
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, author, text, sketch, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.SessionID, turn.Author, turn.Text, turn.Sketch, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Read returns the session's turns in append order.
func (s *SQLiteStore) Read(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	return s.query(ctx,
		`SELECT id, session_id, author, text, sketch, created_at FROM turns WHERE session_id = ? ORDER BY seq`,
		sessionID)
}

// Window returns up to n trailing turns in append order.
func (s *SQLiteStore) Window(ctx context.Context, sessionID string, n int) ([]chat.Turn, error) {
	if n <= 0 {
		return s.Read(ctx, sessionID)
	}

	turns, err := s.query(ctx,
		`SELECT id, session_id, author, text, sketch, created_at FROM turns WHERE session_id = ? ORDER BY seq DESC LIMIT ?`,
		sessionID, n)
	if err != nil {
		return nil, err
	}
	// Flip newest-first back into append order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// RecordArtifact registers a generated artifact path against the session.
func (s *SQLiteStore) RecordArtifact(ctx context.Context, sessionID, path string) error {
	if err := s.ensureRecord(ctx, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (session_id, path, created_at) VALUES (?, ?, ?)`,
		sessionID, path, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record artifact: %w", err)
	}
	return nil
}

// Record returns the session record, defaulting to an active one.
func (s *SQLiteStore) Record(ctx context.Context, sessionID string) (chat.SessionRecord, error) {
	record := chat.SessionRecord{ID: sessionID, Status: chat.StatusActive}

	var completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT status, actual_target_path, modelled_image_path, summary, completed_at FROM sessions WHERE id = ?`,
		sessionID).Scan(&record.Status, &record.ActualTargetPath, &record.ModelledImagePath, &record.Summary, &completedAt)
	if err != nil && err != sql.ErrNoRows {
		return chat.SessionRecord{}, fmt.Errorf("read session record: %w", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		record.CompletedAt = &t
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM artifacts WHERE session_id = ? ORDER BY created_at`, sessionID)
	if err != nil {
		return chat.SessionRecord{}, fmt.Errorf("read session artifacts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return chat.SessionRecord{}, fmt.Errorf("scan artifact: %w", err)
		}
		record.TargetImagePaths = append(record.TargetImagePaths, path)
	}
	return record, rows.Err()
}

// Complete marks the session completed and stores the close-out data.
func (s *SQLiteStore) Complete(ctx context.Context, sessionID string, completion chat.Completion) error {
	if err := s.ensureRecord(ctx, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, actual_target_path = ?, modelled_image_path = ?, summary = ?, completed_at = ? WHERE id = ?`,
		chat.StatusCompleted, completion.TargetImagePath, completion.ModelledImagePath,
		completion.Summary, time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureRecord(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, sessionID)
	if err != nil {
		return fmt.Errorf("ensure session record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]chat.Turn, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read turns: %w", err)
	}
	defer rows.Close()

	var turns []chat.Turn
	for rows.Next() {
		var turn chat.Turn
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Author, &turn.Text, &turn.Sketch, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}
