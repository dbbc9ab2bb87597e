package chat

import "time"

// Authors of a turn. Viewers draw and describe; the Monitor is the
// AI facilitator guiding the session.
const (
	AuthorViewer  = "Viewer"
	AuthorMonitor = "Monitor"
)

// Turn is one exchange unit in a session's conversation history.
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Author    string    `json:"user"`
	Text      string    `json:"text"`
	Sketch    string    `json:"sketch,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}
