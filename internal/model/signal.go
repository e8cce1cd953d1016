package model

import "time"

// Signal is a piece of external content ingested for analyst review
// (news, filings, reports). Signals are deduplicated by URL on insert.
type Signal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	Summary     string     `json:"summary,omitempty"`
	ThemeID     string     `json:"theme_id,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	IngestedAt  time.Time  `json:"ingested_at"`
}
