package model

import "time"

// ClassificationStatus tracks where a company sits in the classification flow.
type ClassificationStatus string

const (
	ClassificationPending      ClassificationStatus = "pending"
	ClassificationCompleted    ClassificationStatus = "completed"
	ClassificationNoThemeFound ClassificationStatus = "no_theme_found"
	ClassificationFailed       ClassificationStatus = "failed"
)

// Company is a candidate for theme classification. NormalizedName is the
// dedup key for name-based lookups: lowercase, diacritics and legal suffixes
// stripped.
type Company struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	NormalizedName       string               `json:"normalized_name,omitempty"`
	Website              string               `json:"website,omitempty"`
	BusinessDescription  string               `json:"business_description,omitempty"`
	ClassificationStatus ClassificationStatus `json:"classification_status"`
	ClassificationError  string               `json:"classification_error,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// ThemeMapping is the primary (company, theme) classification produced by the
// pipeline. At most one exists per company, backed by a unique constraint.
type ThemeMapping struct {
	ID                 string    `json:"id"`
	CompanyID          string    `json:"company_id"`
	ThemeID            string    `json:"theme_id"`
	ThemeName          string    `json:"theme_name"`
	Pillar             string    `json:"pillar"`
	Sector             string    `json:"sector"`
	BusinessModel      string    `json:"business_model,omitempty"`
	ConfidenceScore    float64   `json:"confidence_score"`
	Rationale          string    `json:"rationale,omitempty"`
	VerificationPassed bool      `json:"company_verification_passed"`
	ResearchSummary    string    `json:"research_summary,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}
