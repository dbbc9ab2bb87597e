package chat

import "time"

// Session lifecycle states tracked by the history store.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// SessionRecord captures per-session metadata that outlives connections:
// lifecycle status, generated artifact paths and the completion summary.
type SessionRecord struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	TargetImagePaths  []string   `json:"targetImages,omitempty"`
	ActualTargetPath  string     `json:"targetImagePath,omitempty"`
	ModelledImagePath string     `json:"modelledImagePath,omitempty"`
	Summary           string     `json:"summary,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// Completion is the data broadcast when a session is closed out and
// replayed to late joiners of a completed session.
type Completion struct {
	TargetImagePath   string   `json:"targetImagePath"`
	ModelledImagePath string   `json:"modelledImagePath,omitempty"`
	Summary           string   `json:"summary"`
	Details           []string `json:"details,omitempty"`
}
