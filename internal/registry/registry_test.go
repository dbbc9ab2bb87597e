package registry_test

import (
	"fmt"
	"testing"

	"github.com/stargate-rv/relay/internal/registry"
)

// nullEndpoint discards everything. The field keeps the struct non-zero
// sized so every allocation is a distinct registry key.
type nullEndpoint struct {
	_ [1]byte
}

func (*nullEndpoint) Send([]byte) error { return nil }

func TestRegisterUnregisterCounts(t *testing.T) {
	reg := registry.New()

	endpoints := make([]*nullEndpoint, 5)
	for i := range endpoints {
		endpoints[i] = &nullEndpoint{}
		reg.Register("rv-1", endpoints[i])
	}
	if got := reg.ClientCount("rv-1"); got != 5 {
		t.Fatalf("expected 5 clients, got %d", got)
	}

	for i := 0; i < 3; i++ {
		reg.Unregister("rv-1", endpoints[i])
	}
	if got := reg.ClientCount("rv-1"); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	reg.Unregister("rv-1", endpoints[3])
	reg.Unregister("rv-1", endpoints[4])
	if got := reg.ClientCount("rv-1"); got != 0 {
		t.Fatalf("expected empty session, got %d clients", got)
	}

	// The emptied session is gone: its stage can no longer be set.
	if reg.SetStage("rv-1", 7) {
		t.Fatal("expected SetStage to fail on removed session")
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	reg := registry.New()
	ep := &nullEndpoint{}

	reg.Register("rv-1", ep)
	reg.Register("rv-1", ep)

	if got := reg.ClientCount("rv-1"); got != 1 {
		t.Fatalf("expected 1 client, got %d", got)
	}
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	reg := registry.New()

	reg.Unregister("missing", &nullEndpoint{})

	reg.Register("rv-1", &nullEndpoint{})
	reg.Unregister("rv-1", &nullEndpoint{})
	if got := reg.ClientCount("rv-1"); got != 1 {
		t.Fatalf("expected 1 client, got %d", got)
	}
}

func TestStageDefaultsAndUpdates(t *testing.T) {
	reg := registry.New()

	if got := reg.Stage("missing"); got != registry.DefaultStage {
		t.Fatalf("expected default stage %d, got %d", registry.DefaultStage, got)
	}
	if reg.SetStage("missing", 3) {
		t.Fatal("expected SetStage to fail on absent session")
	}

	ep := &nullEndpoint{}
	reg.Register("rv-1", ep)
	if got := reg.Stage("rv-1"); got != registry.DefaultStage {
		t.Fatalf("expected fresh session at stage %d, got %d", registry.DefaultStage, got)
	}

	if !reg.SetStage("rv-1", 4) {
		t.Fatal("expected SetStage to succeed")
	}
	if got := reg.Stage("rv-1"); got != 4 {
		t.Fatalf("expected stage 4, got %d", got)
	}

	// Stage regressions are accepted as given.
	if !reg.SetStage("rv-1", 2) {
		t.Fatal("expected SetStage to accept regression")
	}
	if got := reg.Stage("rv-1"); got != 2 {
		t.Fatalf("expected stage 2, got %d", got)
	}

	reg.Unregister("rv-1", ep)
	if got := reg.Stage("rv-1"); got != registry.DefaultStage {
		t.Fatalf("expected stage reset after teardown, got %d", got)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	reg := registry.New()

	for i := 0; i < 3; i++ {
		reg.Register(fmt.Sprintf("rv-%d", i), &nullEndpoint{})
	}
	reg.SetStage("rv-1", 9)

	if got := reg.Stage("rv-0"); got != registry.DefaultStage {
		t.Fatalf("expected rv-0 untouched, got stage %d", got)
	}
	if got := reg.Stage("rv-1"); got != 9 {
		t.Fatalf("expected rv-1 at stage 9, got %d", got)
	}
}
