package relay

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/stargate-rv/relay/internal/model/chat"
	"github.com/stargate-rv/relay/internal/model/protocol"
	"github.com/stargate-rv/relay/internal/registry"
)

// SendJoinSnapshot replays the session state to a single endpoint: turn
// history, current stage, session status, the latest generated target
// image, and completion data when the session was already closed out.
// Never broadcast.
func (p *Pipeline) SendJoinSnapshot(ctx context.Context, sessionID string, ep registry.Endpoint) error {
	turns, err := p.history.Read(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if turns == nil {
		turns = []chat.Turn{}
	}

	record, err := p.history.Record(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session record: %w", err)
	}

	frame := &protocol.InitialHistoryFrame{
		Type:         protocol.FrameInitialHistory,
		History:      turns,
		CurrentStage: p.caster.Stage(sessionID),
		Status:       record.Status,
	}

	if record.Status == chat.StatusCompleted {
		frame.CompletionData = &chat.Completion{
			TargetImagePath:   record.ActualTargetPath,
			ModelledImagePath: record.ModelledImagePath,
			Summary:           record.Summary,
		}
	}

	if latest, ok, err := p.blobs.Latest(targetModelsPrefix(sessionID)); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("latest target image lookup failed")
	} else if ok {
		if data, err := p.blobs.Get(latest.Path); err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("latest target image read failed")
		} else {
			frame.LatestTargetImage = base64.StdEncoding.EncodeToString(data)
		}
	}

	return p.caster.SendTo(sessionID, ep, frame)
}

func targetModelsPrefix(sessionID string) string {
	return fmt.Sprintf("sessions/%s/targetModels", sessionID)
}
