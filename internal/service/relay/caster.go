package relay

import (
	"io"

	"github.com/rs/zerolog/log"

	"github.com/stargate-rv/relay/internal/model/protocol"
	"github.com/stargate-rv/relay/internal/registry"
)

// Caster pairs the broadcast engine with the delivery-failure policy: an
// endpoint that fails a send is unregistered from its session and closed,
// without affecting the other recipients.
type Caster struct {
	registry *registry.Registry
	engine   *registry.Broadcaster
}

// NewCaster wires a caster over the registry.
func NewCaster(reg *registry.Registry) *Caster {
	return &Caster{registry: reg, engine: registry.NewBroadcaster(reg)}
}

// Broadcast fans the frame out to the session, dropping endpoints that
// fail delivery.
func (c *Caster) Broadcast(sessionID string, frame protocol.Frame, exclude registry.Endpoint) {
	c.drop(sessionID, c.engine.Broadcast(sessionID, frame, exclude))
}

// SendTo delivers a stamped frame to a single endpoint.
func (c *Caster) SendTo(sessionID string, ep registry.Endpoint, frame protocol.Frame) error {
	return c.engine.SendTo(sessionID, ep, frame)
}

// SyncStage updates the session stage and announces it to all clients.
func (c *Caster) SyncStage(sessionID string, stage int) {
	c.drop(sessionID, c.engine.SyncStage(sessionID, stage))
}

// Stage reads the session's current stage.
func (c *Caster) Stage(sessionID string) int {
	return c.registry.Stage(sessionID)
}

func (c *Caster) drop(sessionID string, failed []registry.Endpoint) {
	for _, ep := range failed {
		log.Info().Str("session", sessionID).Msg("dropping unreachable client")
		c.registry.Unregister(sessionID, ep)
		if closer, ok := ep.(io.Closer); ok {
			_ = closer.Close()
		}
	}
}
