package protocol

import (
	"encoding/json"
	"fmt"
)

// Inbound envelope types.
const (
	TypeJoinSession     = "joinSession"
	TypeDraw            = "draw"
	TypeClear           = "clear"
	TypeSyncStage       = "syncStage"
	TypeChatOnly        = "chatOnly"
	TypeSketchAndChat   = "sketchAndChat"
	TypeCompleteSession = "completeSession"
)

// ProtocolError reports a malformed or incomplete envelope. The dispatcher
// maps it to an error frame or a connection close, depending on where it
// surfaces.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// Envelope is one decoded inbound event. Type-specific fields are only
// meaningful for the matching Type; Validate enforces the required ones.
type Envelope struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId,omitempty"`
	ID          string `json:"id,omitempty"`
	User        string `json:"user,omitempty"`
	Message     string `json:"message,omitempty"`
	Sketch      string `json:"sketch,omitempty"`
	StageNumber *int   `json:"stageNumber,omitempty"`

	raw json.RawMessage
}

// DecodeEnvelope parses an inbound payload, retaining the raw bytes so
// draw payloads can be forwarded verbatim.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ProtocolError{Reason: fmt.Sprintf("malformed envelope: %v", err)}
	}
	if env.Type == "" {
		return nil, &ProtocolError{Reason: "missing type field"}
	}
	env.raw = append(json.RawMessage(nil), data...)
	return &env, nil
}

// Raw returns the original payload bytes of the envelope.
func (e *Envelope) Raw() json.RawMessage {
	return e.raw
}

// Validate checks the type-specific required fields.
func (e *Envelope) Validate() error {
	switch e.Type {
	case TypeSyncStage:
		if e.StageNumber == nil {
			return &ProtocolError{Reason: "syncStage requires stageNumber"}
		}
	case TypeChatOnly:
		if e.Message == "" {
			return &ProtocolError{Reason: "chatOnly requires message"}
		}
	case TypeSketchAndChat:
		if e.Message == "" && e.Sketch == "" {
			return &ProtocolError{Reason: "sketchAndChat requires message or sketch"}
		}
	}
	return nil
}

// DrawPayload decodes the envelope into a generic map so the broadcast
// engine can stamp the stage onto the verbatim drawing payload.
func (e *Envelope) DrawPayload() (map[string]any, error) {
	payload := make(map[string]any)
	if err := json.Unmarshal(e.raw, &payload); err != nil {
		return nil, &ProtocolError{Reason: fmt.Sprintf("malformed draw payload: %v", err)}
	}
	return payload, nil
}
