package history_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stargate-rv/relay/internal/model/chat"
	"github.com/stargate-rv/relay/internal/service/history"
)

// runStoreTests exercises the Store contract against every driver.
func runStoreTests(t *testing.T, open func(t *testing.T) history.Store) {
	ctx := context.Background()

	t.Run("append and read in order", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		for i := 0; i < 3; i++ {
			turn := chat.Turn{SessionID: "rv-1", Author: chat.AuthorViewer, Text: fmt.Sprintf("turn %d", i)}
			if err := store.Append(ctx, turn); err != nil {
				t.Fatalf("append failed: %v", err)
			}
		}

		turns, err := store.Read(ctx, "rv-1")
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(turns) != 3 {
			t.Fatalf("expected 3 turns, got %d", len(turns))
		}
		for i, turn := range turns {
			if turn.Text != fmt.Sprintf("turn %d", i) {
				t.Fatalf("turn %d out of order: %q", i, turn.Text)
			}
			if turn.ID == "" {
				t.Fatalf("turn %d missing generated id", i)
			}
			if turn.CreatedAt.IsZero() {
				t.Fatalf("turn %d missing generated timestamp", i)
			}
		}
	})

	t.Run("unknown session reads empty", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		turns, err := store.Read(ctx, "missing")
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(turns) != 0 {
			t.Fatalf("expected no turns, got %d", len(turns))
		}
	})

	t.Run("window returns trailing turns", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		for i := 0; i < 5; i++ {
			turn := chat.Turn{SessionID: "rv-1", Author: chat.AuthorViewer, Text: fmt.Sprintf("turn %d", i)}
			if err := store.Append(ctx, turn); err != nil {
				t.Fatalf("append failed: %v", err)
			}
		}

		window, err := store.Window(ctx, "rv-1", 2)
		if err != nil {
			t.Fatalf("window failed: %v", err)
		}
		if len(window) != 2 {
			t.Fatalf("expected 2 turns, got %d", len(window))
		}
		if window[0].Text != "turn 3" || window[1].Text != "turn 4" {
			t.Fatalf("expected trailing turns in append order, got %q, %q", window[0].Text, window[1].Text)
		}
	})

	t.Run("record defaults to active", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		record, err := store.Record(ctx, "rv-1")
		if err != nil {
			t.Fatalf("record failed: %v", err)
		}
		if record.Status != chat.StatusActive {
			t.Fatalf("expected active status, got %q", record.Status)
		}
		if len(record.TargetImagePaths) != 0 {
			t.Fatalf("expected no artifacts, got %v", record.TargetImagePaths)
		}
	})

	t.Run("artifacts accumulate on the record", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		paths := []string{"sessions/rv-1/targetModels/a.jpg", "sessions/rv-1/targetModels/b.jpg"}
		for _, path := range paths {
			if err := store.RecordArtifact(ctx, "rv-1", path); err != nil {
				t.Fatalf("record artifact failed: %v", err)
			}
		}

		record, err := store.Record(ctx, "rv-1")
		if err != nil {
			t.Fatalf("record failed: %v", err)
		}
		if len(record.TargetImagePaths) != 2 {
			t.Fatalf("expected 2 artifacts, got %v", record.TargetImagePaths)
		}
	})

	t.Run("complete stores close-out data", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		completion := chat.Completion{
			TargetImagePath:   "sessions/rv-1/targetImage/actual_target.jpg",
			ModelledImagePath: "sessions/rv-1/targetModels/a.jpg",
			Summary:           "close agreement on the red doorway",
		}
		if err := store.Complete(ctx, "rv-1", completion); err != nil {
			t.Fatalf("complete failed: %v", err)
		}

		record, err := store.Record(ctx, "rv-1")
		if err != nil {
			t.Fatalf("record failed: %v", err)
		}
		if record.Status != chat.StatusCompleted {
			t.Fatalf("expected completed status, got %q", record.Status)
		}
		if record.ActualTargetPath != completion.TargetImagePath {
			t.Fatalf("unexpected target path %q", record.ActualTargetPath)
		}
		if record.ModelledImagePath != completion.ModelledImagePath {
			t.Fatalf("unexpected modelled path %q", record.ModelledImagePath)
		}
		if record.Summary != completion.Summary {
			t.Fatalf("unexpected summary %q", record.Summary)
		}
		if record.CompletedAt == nil {
			t.Fatal("expected completedAt to be set")
		}
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		if err := store.Append(ctx, chat.Turn{SessionID: "rv-1", Author: chat.AuthorViewer, Text: "hello"}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
		turns, err := store.Read(ctx, "rv-2")
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(turns) != 0 {
			t.Fatalf("expected rv-2 empty, got %d turns", len(turns))
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) history.Store {
		return history.NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) history.Store {
		store, err := history.NewSQLiteStore(":memory:")
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		return store
	})
}
