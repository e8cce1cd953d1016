package model

import "time"

// Confidence is the qualitative confidence label attached to a score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// Rank orders labels from most pessimistic (Low) to most optimistic (High).
// Used for the pessimistic tie-break in the confidence rollup.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceLow:
		return 0
	case ConfidenceMedium:
		return 1
	case ConfidenceHigh:
		return 2
	default:
		return -1
	}
}

// Valid reports whether c is one of the three known labels.
func (c Confidence) Valid() bool {
	return c.Rank() >= 0
}

// UpdateSource records the provenance of a score write.
type UpdateSource string

const (
	SourceManual     UpdateSource = "manual"
	SourceBulkManual UpdateSource = "bulk_manual"
	SourceAIResearch UpdateSource = "ai_research"
)

// DetailedScore is a (theme, criterion) score on the canonical 0-100 scale.
// At most one row exists per pair; writes overwrite in place, latest wins.
type DetailedScore struct {
	ID           string       `json:"id"`
	ThemeID      string       `json:"theme_id"`
	CriterionID  string       `json:"criterion_id"`
	Value        float64      `json:"value"`
	Confidence   Confidence   `json:"confidence,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	UpdateSource UpdateSource `json:"update_source"`
	UpdatedBy    string       `json:"updated_by,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
