package registry

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/stargate-rv/relay/internal/model/protocol"
)

// Broadcaster fans frames out to every endpoint of a session, stamping the
// session's current stage on each frame. It reports delivery failures
// upward; dropping dead endpoints is the caller's job.
type Broadcaster struct {
	registry *Registry
}

// NewBroadcaster wires a broadcaster to the registry it reads from.
func NewBroadcaster(r *Registry) *Broadcaster {
	return &Broadcaster{registry: r}
}

// Broadcast stamps the frame with the session's stage and delivers it to
// every endpoint except exclude. A failed send never blocks or aborts
// delivery to the rest. Returns the endpoints whose send failed. Sessions
// with no clients are a silent no-op.
func (b *Broadcaster) Broadcast(sessionID string, frame protocol.Frame, exclude Endpoint) []Endpoint {
	stage, clients := b.registry.snapshot(sessionID)
	if len(clients) == 0 {
		return nil
	}

	frame.StampStage(stage)
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("broadcast marshal failed")
		return nil
	}

	var failed []Endpoint
	for _, ep := range clients {
		if ep == exclude {
			continue
		}
		if err := ep.Send(payload); err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("broadcast delivery failed")
			failed = append(failed, ep)
		}
	}
	return failed
}

// SendTo stamps the frame and delivers it to a single endpoint only,
// never touching the rest of the session. Used for join snapshots and
// sender-only errors.
func (b *Broadcaster) SendTo(sessionID string, ep Endpoint, frame protocol.Frame) error {
	frame.StampStage(b.registry.Stage(sessionID))
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	return ep.Send(payload)
}

// SyncStage sets the session's stage and announces it to all clients. The
// new value is accepted as given; absent sessions are a no-op.
func (b *Broadcaster) SyncStage(sessionID string, stage int) []Endpoint {
	if !b.registry.SetStage(sessionID, stage) {
		return nil
	}
	return b.Broadcast(sessionID, protocol.NewSyncStage(), nil)
}
