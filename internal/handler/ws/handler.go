package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/stargate-rv/relay/internal/model/protocol"
	"github.com/stargate-rv/relay/internal/registry"
	"github.com/stargate-rv/relay/internal/service/relay"
)

// Handler owns the websocket endpoint: it upgrades connections, runs one
// read loop per connection and routes decoded envelopes to the relay
// pipeline and broadcast engine.
type Handler struct {
	registry *registry.Registry
	caster   *relay.Caster
	pipeline *relay.Pipeline
	upgrader websocket.Upgrader
}

// New creates the websocket handler.
func New(reg *registry.Registry, caster *relay.Caster, pipeline *relay.Pipeline) *Handler {
	return &Handler{
		registry: reg,
		caster:   caster,
		pipeline: pipeline,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleSession)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(conn)
	defer func() {
		h.registry.Unregister(sessionID, client)
		client.Close()
	}()

	log.Info().Str("session", sessionID).Msg("client connected")

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	h.registry.Register(sessionID, client)
	if err := h.pipeline.SendJoinSnapshot(r.Context(), sessionID, client); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("join snapshot failed")
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("session", sessionID).Msg("read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			// Malformed traffic: close with the reason rather than
			// guessing at intent.
			h.closeWithReason(conn, err.Error())
			return
		}

		if env.SessionID != "" && env.SessionID != sessionID {
			h.sendError(sessionID, client, "session mismatch")
			continue
		}
		if err := env.Validate(); err != nil {
			h.sendError(sessionID, client, err.Error())
			continue
		}

		h.route(r.Context(), sessionID, client, env)
	}
}

// route dispatches one envelope. Turn-processing failures are contained
// here: they become frames, never connection teardown.
func (h *Handler) route(ctx context.Context, sessionID string, client *Client, env *protocol.Envelope) {
	// Generation keeps streaming to the rest of the session even if the
	// initiating client disconnects mid-turn.
	turnCtx := context.WithoutCancel(ctx)

	switch env.Type {
	case protocol.TypeJoinSession:
		if err := h.pipeline.SendJoinSnapshot(ctx, sessionID, client); err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("join snapshot failed")
		}

	case protocol.TypeDraw:
		payload, err := env.DrawPayload()
		if err != nil {
			h.sendError(sessionID, client, err.Error())
			return
		}
		h.caster.Broadcast(sessionID, protocol.RawFrame(payload), client)

	case protocol.TypeClear:
		h.caster.Broadcast(sessionID, protocol.NewClear(), nil)

	case protocol.TypeSyncStage:
		h.caster.SyncStage(sessionID, *env.StageNumber)

	case protocol.TypeChatOnly:
		if err := h.pipeline.ProcessChat(turnCtx, sessionID, env, client); err != nil {
			h.reportTurnError(sessionID, client, err)
		}

	case protocol.TypeSketchAndChat:
		if err := h.pipeline.ProcessSketchChat(turnCtx, sessionID, env, client); err != nil {
			h.reportTurnError(sessionID, client, err)
		}

	case protocol.TypeCompleteSession:
		if _, err := h.pipeline.CompleteSession(turnCtx, sessionID); err != nil {
			h.reportTurnError(sessionID, client, err)
		}

	default:
		h.sendError(sessionID, client, "unsupported message type: "+env.Type)
	}
}

// reportTurnError maps error kinds to frames: generation and extraction
// failures are session-wide, everything else stays with the sender.
func (h *Handler) reportTurnError(sessionID string, client *Client, err error) {
	log.Error().Err(err).Str("session", sessionID).Msg("turn processing failed")

	if errors.Is(err, relay.ErrGeneration) || errors.Is(err, relay.ErrExtraction) {
		h.caster.Broadcast(sessionID, protocol.NewGeminiError("Error processing your request"), nil)
		return
	}
	h.sendError(sessionID, client, "failed to process request")
}

func (h *Handler) sendError(sessionID string, client *Client, message string) {
	if err := h.caster.SendTo(sessionID, client, protocol.NewError(message)); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("error frame delivery failed")
	}
}

func (h *Handler) closeWithReason(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(writeTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseInvalidFramePayloadData, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
}
