package relay

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/stargate-rv/relay/internal/model/chat"
	"github.com/stargate-rv/relay/internal/model/protocol"
	"github.com/stargate-rv/relay/internal/service/ai"
)

// targetsPrefix is where reference target images live in the blob store.
const targetsPrefix = "targets"

// ErrNoTargets reports an empty reference target pool.
var ErrNoTargets = errors.New("no target images found")

// CompleteSession closes a session out: assign a random reference target,
// locate the latest modelled image, summarise the transcript, persist the
// completion record and announce it to all participants.
func (p *Pipeline) CompleteSession(ctx context.Context, sessionID string) (chat.Completion, error) {
	targets, err := p.blobs.List(targetsPrefix)
	if err != nil {
		return chat.Completion{}, fmt.Errorf("list targets: %w", err)
	}
	if len(targets) == 0 {
		return chat.Completion{}, ErrNoTargets
	}

	picked := targets[rand.IntN(len(targets))]
	data, err := p.blobs.Get(picked.Path)
	if err != nil {
		return chat.Completion{}, fmt.Errorf("read target %s: %w", picked.Path, err)
	}

	targetPath := fmt.Sprintf("sessions/%s/targetImage/actual_target.jpg", sessionID)
	if err := p.blobs.Put(targetPath, data); err != nil {
		return chat.Completion{}, fmt.Errorf("store session target: %w", err)
	}

	completion := chat.Completion{TargetImagePath: targetPath}
	if modelled, ok, err := p.blobs.Latest(targetModelsPrefix(sessionID)); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("modelled image lookup failed")
	} else if ok {
		completion.ModelledImagePath = modelled.Path
	}

	summary, err := p.summarise(ctx, sessionID)
	if err != nil {
		return chat.Completion{}, err
	}
	completion.Summary = summary

	if err := p.history.Complete(ctx, sessionID, completion); err != nil {
		return chat.Completion{}, fmt.Errorf("persist completion: %w", err)
	}

	p.caster.Broadcast(sessionID, &protocol.SessionCompleteFrame{
		Type:           protocol.FrameSessionComplete,
		CompletionData: completion,
	}, nil)

	log.Info().Str("session", sessionID).Msg("session completed")
	return completion, nil
}

func (p *Pipeline) summarise(ctx context.Context, sessionID string) (string, error) {
	if p.generator == nil {
		return "", generationErr(errors.New("text generation unavailable"))
	}

	turns, err := p.history.Read(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Summarise the remote viewing session with ID %s. Here's the chat history:\n\n", sessionID)
	for _, turn := range turns {
		fmt.Fprintf(&b, "%s: %s\n", turn.Author, turn.Text)
	}

	response, err := p.generator.Invoke(ctx, ai.Request{Query: b.String()})
	if err != nil {
		return "", generationErr(err)
	}
	return response.Content, nil
}
