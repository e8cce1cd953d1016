package model

import "time"

// RegulationStatus tracks where a regulatory development sits in its lifecycle.
type RegulationStatus string

const (
	RegulationProposed RegulationStatus = "proposed"
	RegulationAdopted  RegulationStatus = "adopted"
	RegulationInForce  RegulationStatus = "in_force"
	RegulationRepealed RegulationStatus = "repealed"
)

// Valid reports whether s is a known lifecycle status.
func (s RegulationStatus) Valid() bool {
	switch s {
	case RegulationProposed, RegulationAdopted, RegulationInForce, RegulationRepealed:
		return true
	}
	return false
}

// Regulation is a tracked regulatory development.
type Regulation struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Jurisdiction  string           `json:"jurisdiction"`
	Status        RegulationStatus `json:"status"`
	Summary       string           `json:"summary,omitempty"`
	SourceURL     string           `json:"source_url,omitempty"`
	EffectiveDate *time.Time       `json:"effective_date,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ThemeRegulation links a regulation to a theme with a relevance note.
type ThemeRegulation struct {
	ThemeID      string    `json:"theme_id"`
	RegulationID string    `json:"regulation_id"`
	Relevance    string    `json:"relevance,omitempty"`
	LinkedAt     time.Time `json:"linked_at"`
}
