package model

import "time"

// ResearchDocument is metadata for an uploaded research file. The content
// itself lives in the document store under StoragePath.
type ResearchDocument struct {
	ID          string    `json:"id"`
	ThemeID     string    `json:"theme_id"`
	Title       string    `json:"title"`
	FileName    string    `json:"file_name"`
	StoragePath string    `json:"storage_path"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  string    `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
