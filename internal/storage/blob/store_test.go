package blob_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/stargate-rv/relay/internal/storage/blob"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := blob.NewFSStore(afero.NewMemMapFs())

	data := []byte("jpeg bytes")
	if err := store.Put("sessions/rv-1/targetModels/a.jpg", data); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := store.Get("sessions/rv-1/targetModels/a.jpg")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestGetMissingFails(t *testing.T) {
	store := blob.NewFSStore(afero.NewMemMapFs())

	if _, err := store.Get("nope.jpg"); err == nil {
		t.Fatal("expected error for missing blob")
	}
}

func TestListMissingPrefixIsEmpty(t *testing.T) {
	store := blob.NewFSStore(afero.NewMemMapFs())

	entries, err := store.List("targets")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty listing, got %v", entries)
	}
}

func TestListReturnsAllUnderPrefix(t *testing.T) {
	store := blob.NewFSStore(afero.NewMemMapFs())

	for _, path := range []string{"targets/a.jpg", "targets/b.jpg", "sessions/rv-1/targetModels/c.jpg"} {
		if err := store.Put(path, []byte("x")); err != nil {
			t.Fatalf("put %s failed: %v", path, err)
		}
	}

	entries, err := store.List("targets")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.Path != "targets/a.jpg" && entry.Path != "targets/b.jpg" {
			t.Fatalf("unexpected entry %q", entry.Path)
		}
	}
}

func TestLatestPicksNewest(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := blob.NewFSStore(fs)

	base := time.Now().Add(-time.Hour)
	files := []struct {
		path string
		mod  time.Time
	}{
		{"sessions/rv-1/targetModels/old.jpg", base},
		{"sessions/rv-1/targetModels/newest.jpg", base.Add(2 * time.Minute)},
		{"sessions/rv-1/targetModels/mid.jpg", base.Add(time.Minute)},
	}
	for _, f := range files {
		if err := store.Put(f.path, []byte("x")); err != nil {
			t.Fatalf("put %s failed: %v", f.path, err)
		}
		if err := fs.Chtimes(f.path, f.mod, f.mod); err != nil {
			t.Fatalf("chtimes %s failed: %v", f.path, err)
		}
	}

	latest, ok, err := store.Latest("sessions/rv-1/targetModels")
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if !ok {
		t.Fatal("expected an entry")
	}
	if latest.Path != "sessions/rv-1/targetModels/newest.jpg" {
		t.Fatalf("expected newest.jpg, got %q", latest.Path)
	}
}

func TestLatestEmptyPrefix(t *testing.T) {
	store := blob.NewFSStore(afero.NewMemMapFs())

	_, ok, err := store.Latest("sessions/rv-1/targetModels")
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if ok {
		t.Fatal("expected no entry for empty prefix")
	}
}
