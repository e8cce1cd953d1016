package model

import "time"

// RunStatus is the state of an automated research run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ResearchRun tracks one automated research execution against a theme.
// Completed runs write their criterion scores back with source ai_research.
type ResearchRun struct {
	ID           string    `json:"id"`
	ThemeID      string    `json:"theme_id"`
	Status       RunStatus `json:"status"`
	TriggeredBy  string    `json:"triggered_by,omitempty"`
	Error        string    `json:"error,omitempty"`
	ScoresSaved  int       `json:"scores_saved"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
