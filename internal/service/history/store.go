// Package history persists session transcripts and per-session records.
// Two drivers exist: an in-memory store for tests and single-process
// deployments, and a SQLite store for anything that should survive a
// restart.
package history

import (
	"context"

	"github.com/stargate-rv/relay/internal/model/chat"
)

// Store is the chat-history collaborator consumed by the relay core.
// Sessions come into existence implicitly on first append; reads on
// unknown sessions return empty results, not errors.
type Store interface {
	// Append stores one turn, generating id and timestamp when absent.
	Append(ctx context.Context, turn chat.Turn) error
	// Read returns the session's turns in append order.
	Read(ctx context.Context, sessionID string) ([]chat.Turn, error)
	// Window returns up to n trailing turns in append order.
	Window(ctx context.Context, sessionID string, n int) ([]chat.Turn, error)
	// RecordArtifact registers a generated artifact path against the
	// session record.
	RecordArtifact(ctx context.Context, sessionID, path string) error
	// Record returns the session record; unknown sessions report an
	// active record with no artifacts.
	Record(ctx context.Context, sessionID string) (chat.SessionRecord, error)
	// Complete marks the session completed and stores the close-out data.
	Complete(ctx context.Context, sessionID string, completion chat.Completion) error
	// Close releases driver resources.
	Close() error
}
