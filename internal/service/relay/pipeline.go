package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stargate-rv/relay/internal/model/chat"
	"github.com/stargate-rv/relay/internal/model/protocol"
	"github.com/stargate-rv/relay/internal/registry"
	"github.com/stargate-rv/relay/internal/service/ai"
	"github.com/stargate-rv/relay/internal/service/history"
	"github.com/stargate-rv/relay/internal/storage/blob"
)

// contextWindow bounds the trailing turns used for image prompts and
// detail extraction context.
const contextWindow = 5

// Generator is the streaming text-generation collaborator.
type Generator interface {
	Stream(ctx context.Context, req ai.Request) (*schema.StreamReader[*schema.Message], error)
	Invoke(ctx context.Context, req ai.Request) (*schema.Message, error)
}

// ImageGenerator is the target-image collaborator.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// Pipeline drives chat turns: fan-out of the viewer's message, streaming
// aggregation of the Monitor response, detail extraction and best-effort
// target-image generation.
type Pipeline struct {
	caster    *Caster
	history   history.Store
	generator Generator
	images    ImageGenerator // nil when image generation is disabled
	blobs     blob.Store
}

// NewPipeline wires the chat pipeline. generator and images may be nil
// when the corresponding collaborator is not configured.
func NewPipeline(caster *Caster, store history.Store, generator Generator, images ImageGenerator, blobs blob.Store) *Pipeline {
	return &Pipeline{
		caster:    caster,
		history:   store,
		generator: generator,
		images:    images,
		blobs:     blobs,
	}
}

// ProcessChat handles a text-only chat turn: commit and relay the viewer
// turn, then stream the Monitor response to the whole session.
func (p *Pipeline) ProcessChat(ctx context.Context, sessionID string, env *protocol.Envelope, sender registry.Endpoint) error {
	if p.generator == nil {
		return generationErr(errors.New("text generation unavailable"))
	}

	prior, err := p.history.Read(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	turn := p.viewerTurn(sessionID, env)
	if err := p.history.Append(ctx, turn); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("failed to persist viewer turn")
	}
	p.caster.Broadcast(sessionID, protocol.NewViewerEcho(turn), sender)

	_, err = p.streamTurn(ctx, sessionID, ai.Request{
		System:  ai.SessionSystemPrompt,
		History: prior,
		Query:   turn.Text,
	})
	return err
}

// ProcessSketchChat handles a sketch+chat turn. Detail extraction is a
// hard prerequisite: its failure aborts the turn before any streaming
// frame. Image generation afterwards is best-effort and never fails the
// turn.
func (p *Pipeline) ProcessSketchChat(ctx context.Context, sessionID string, env *protocol.Envelope, sender registry.Endpoint) error {
	if p.generator == nil {
		return generationErr(errors.New("text generation unavailable"))
	}

	prior, err := p.history.Read(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	turn := p.viewerTurn(sessionID, env)
	if err := p.history.Append(ctx, turn); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("failed to persist viewer turn")
	}
	p.caster.Broadcast(sessionID, protocol.NewViewerEcho(turn), sender)

	details, err := p.extractDetails(ctx, sessionID, ai.Request{
		System:      ai.DetailExtractionPrompt,
		History:     prior,
		Query:       turn.Text,
		ImageBase64: turn.Sketch,
	})
	if err != nil {
		return err
	}

	system := ai.SessionSystemPrompt
	if len(details) > 0 {
		system += "\n\nDetails extracted from the session so far: " + strings.Join(details, ", ")
	}

	if _, err := p.streamTurn(ctx, sessionID, ai.Request{
		System:      system,
		History:     prior,
		Query:       turn.Text,
		ImageBase64: turn.Sketch,
	}); err != nil {
		return err
	}

	p.generateTargetImage(ctx, sessionID, details)
	return nil
}

// streamTurn runs one generation request to completion, relaying each
// fragment as it arrives and committing the aggregated response. On any
// stream failure no terminal frame is sent and nothing is committed;
// already-delivered fragments stand.
func (p *Pipeline) streamTurn(ctx context.Context, sessionID string, req ai.Request) (chat.Turn, error) {
	messageID := uuid.NewString()

	stream, err := p.generator.Stream(ctx, req)
	if err != nil {
		return chat.Turn{}, generationErr(err)
	}
	defer stream.Close()

	var fullResponse strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return chat.Turn{}, generationErr(recvErr)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		fullResponse.WriteString(chunk.Content)
		p.caster.Broadcast(sessionID, protocol.NewStreamChunk(messageID, chunk.Content), nil)
	}

	full := fullResponse.String()
	p.caster.Broadcast(sessionID, protocol.NewStreamDone(messageID, full), nil)

	turn := chat.Turn{
		ID:        messageID,
		SessionID: sessionID,
		Author:    chat.AuthorMonitor,
		Text:      full,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.history.Append(ctx, turn); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("failed to persist monitor turn")
	}

	log.Debug().Str("session", sessionID).Str("message", messageID).Int("length", len(full)).
		Msg("completed streaming turn")
	return turn, nil
}

// generateTargetImage renders a target model from the extracted details
// plus trailing conversation context, then publishes and persists it.
// Failures are logged and swallowed.
func (p *Pipeline) generateTargetImage(ctx context.Context, sessionID string, details []string) {
	if p.images == nil {
		return
	}

	window, err := p.history.Window(ctx, sessionID, contextWindow)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("image prompt context unavailable")
	}

	data, err := p.images.Generate(ctx, buildImagePrompt(details, window))
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("target image generation failed")
		return
	}

	p.caster.Broadcast(sessionID, protocol.NewUpdateTargetImage(base64.StdEncoding.EncodeToString(data)), nil)

	path := fmt.Sprintf("sessions/%s/targetModels/%s.jpg", sessionID, uuid.NewString())
	if err := p.blobs.Put(path, data); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("failed to persist target image")
		return
	}
	if err := p.history.RecordArtifact(ctx, sessionID, path); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("failed to record target image path")
	}
}

func (p *Pipeline) viewerTurn(sessionID string, env *protocol.Envelope) chat.Turn {
	turn := chat.Turn{
		ID:        env.ID,
		SessionID: sessionID,
		Author:    env.User,
		Text:      env.Message,
		Sketch:    env.Sketch,
		CreatedAt: time.Now().UTC(),
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Author == "" {
		turn.Author = chat.AuthorViewer
	}
	return turn
}

func buildImagePrompt(details []string, window []chat.Turn) string {
	var b strings.Builder
	b.WriteString("Generate an image of a target based on the following details: ")
	b.WriteString(strings.Join(details, ", "))
	b.WriteString(". Additional context from conversation:")
	for _, turn := range window {
		b.WriteString(" ")
		b.WriteString(turn.Text)
	}
	return b.String()
}
