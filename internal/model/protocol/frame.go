package protocol

import (
	"time"

	"github.com/stargate-rv/relay/internal/model/chat"
)

// Outbound frame types.
const (
	FrameInitialHistory    = "initialHistory"
	FrameStreamResponse    = "geminiStreamResponse"
	FrameGeminiError       = "geminiError"
	FrameClear             = "clear"
	FrameSyncStage         = "syncStage"
	FrameUpdateDetails     = "updateDetails"
	FrameUpdateTargetImage = "updateTargetImage"
	FrameSessionComplete   = "sessionComplete"
	FrameError             = "error"
)

// Frame is any outbound message. The broadcast engine stamps the session's
// current stage onto every frame before delivery.
type Frame interface {
	StampStage(stage int)
}

// StageStamp carries the server-stamped stage number. Embed it in every
// concrete frame type.
type StageStamp struct {
	StageNumber int `json:"stageNumber"`
}

// StampStage implements Frame.
func (s *StageStamp) StampStage(stage int) {
	s.StageNumber = stage
}

// RawFrame wraps an arbitrary payload (verbatim draw forwarding) so it can
// still be stage-stamped.
type RawFrame map[string]any

// StampStage implements Frame.
func (f RawFrame) StampStage(stage int) {
	f["stageNumber"] = stage
}

// StreamFrame is one partial or terminal chunk of a Monitor response, or
// the echo of a Viewer turn relayed to the other participants.
type StreamFrame struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Text       string `json:"text"`
	User       string `json:"user"`
	Sketch     string `json:"sketch,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	IsComplete bool   `json:"isComplete"`
	StageStamp
}

// NewStreamChunk builds a non-terminal Monitor fragment frame. Text carries
// only the new fragment; clients accumulate.
func NewStreamChunk(messageID, fragment string) *StreamFrame {
	return &StreamFrame{
		Type: FrameStreamResponse,
		ID:   messageID,
		Text: fragment,
		User: chat.AuthorMonitor,
	}
}

// NewStreamDone builds the terminal frame carrying the full accumulated
// response.
func NewStreamDone(messageID, fullText string) *StreamFrame {
	return &StreamFrame{
		Type:       FrameStreamResponse,
		ID:         messageID,
		Text:       fullText,
		User:       chat.AuthorMonitor,
		IsComplete: true,
	}
}

// NewViewerEcho relays an incoming Viewer turn to the session's other
// participants (the sender already has a local echo).
func NewViewerEcho(turn chat.Turn) *StreamFrame {
	return &StreamFrame{
		Type:      FrameStreamResponse,
		ID:        turn.ID,
		Text:      turn.Text,
		User:      turn.Author,
		Sketch:    turn.Sketch,
		Timestamp: turn.CreatedAt.Format(time.RFC3339),
	}
}

// GeminiErrorFrame reports a failed generation turn to the whole session.
type GeminiErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	StageStamp
}

// NewGeminiError builds the generation failure frame.
func NewGeminiError(message string) *GeminiErrorFrame {
	return &GeminiErrorFrame{Type: FrameGeminiError, Message: message}
}

// ClearFrame wipes the shared canvas.
type ClearFrame struct {
	Type string `json:"type"`
	StageStamp
}

// NewClear builds the canvas clear frame.
func NewClear() *ClearFrame {
	return &ClearFrame{Type: FrameClear}
}

// SyncStageFrame announces a stage change to all participants.
type SyncStageFrame struct {
	Type string `json:"type"`
	StageStamp
}

// NewSyncStage builds the stage sync frame. The stamp doubles as the
// payload: stageNumber is the new stage.
func NewSyncStage() *SyncStageFrame {
	return &SyncStageFrame{Type: FrameSyncStage}
}

// UpdateDetailsFrame carries the structured attributes extracted from the
// conversation and sketch.
type UpdateDetailsFrame struct {
	Type    string   `json:"type"`
	Details []string `json:"details"`
	StageStamp
}

// NewUpdateDetails builds the extracted-details frame.
func NewUpdateDetails(details []string) *UpdateDetailsFrame {
	return &UpdateDetailsFrame{Type: FrameUpdateDetails, Details: details}
}

// UpdateTargetImageFrame carries a freshly generated target model image.
type UpdateTargetImageFrame struct {
	Type        string `json:"type"`
	ImageBase64 string `json:"imageBase64"`
	StageStamp
}

// NewUpdateTargetImage builds the generated-image frame.
func NewUpdateTargetImage(imageBase64 string) *UpdateTargetImageFrame {
	return &UpdateTargetImageFrame{Type: FrameUpdateTargetImage, ImageBase64: imageBase64}
}

// InitialHistoryFrame is the join snapshot sent to a single endpoint.
type InitialHistoryFrame struct {
	Type              string           `json:"type"`
	History           []chat.Turn      `json:"history"`
	CurrentStage      int              `json:"currentStage"`
	Status            string           `json:"status"`
	LatestTargetImage string           `json:"latestTargetImage,omitempty"`
	CompletionData    *chat.Completion `json:"completionData,omitempty"`
	StageStamp
}

// SessionCompleteFrame announces the session close-out.
type SessionCompleteFrame struct {
	Type           string          `json:"type"`
	CompletionData chat.Completion `json:"completionData"`
	StageStamp
}

// ErrorFrame reports a per-connection problem to the sender only.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	StageStamp
}

// NewError builds a sender-only error frame.
func NewError(message string) *ErrorFrame {
	return &ErrorFrame{Type: FrameError, Message: message}
}
