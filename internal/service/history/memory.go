package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stargate-rv/relay/internal/model/chat"
)

// MemoryStore keeps transcripts in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	turns   map[string][]chat.Turn
	records map[string]chat.SessionRecord
}

// NewMemoryStore bootstraps the in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		turns:   make(map[string][]chat.Turn),
		records: make(map[string]chat.SessionRecord),
	}
}

// Append stores one turn, generating id and timestamp when absent.
func (s *MemoryStore) Append(_ context.Context, turn chat.Turn) error {
	if turn.SessionID == "" {
		return nil
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], turn)
	return nil
}

// Read returns the session's turns in append order.
func (s *MemoryStore) Read(_ context.Context, sessionID string) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[sessionID]
	copied := make([]chat.Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

// Window returns up to n trailing turns in append order.
func (s *MemoryStore) Window(ctx context.Context, sessionID string, n int) ([]chat.Turn, error) {
	turns, err := s.Read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

// RecordArtifact registers a generated artifact path against the session.
func (s *MemoryStore) RecordArtifact(_ context.Context, sessionID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.record(sessionID)
	record.TargetImagePaths = append(record.TargetImagePaths, path)
	s.records[sessionID] = record
	return nil
}

// Record returns the session record, defaulting to an active one.
func (s *MemoryStore) Record(_ context.Context, sessionID string) (chat.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record(sessionID), nil
}

// Complete marks the session completed and stores the close-out data.
func (s *MemoryStore) Complete(_ context.Context, sessionID string, completion chat.Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	record := s.record(sessionID)
	record.Status = chat.StatusCompleted
	record.ActualTargetPath = completion.TargetImagePath
	record.ModelledImagePath = completion.ModelledImagePath
	record.Summary = completion.Summary
	record.CompletedAt = &now
	s.records[sessionID] = record
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

// record must be called with the mutex held.
func (s *MemoryStore) record(sessionID string) chat.SessionRecord {
	if record, ok := s.records[sessionID]; ok {
		return record
	}
	return chat.SessionRecord{ID: sessionID, Status: chat.StatusActive}
}
