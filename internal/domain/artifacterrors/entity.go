package artifacterrors

import "time"

// ArtifactError records why an uploaded file produced no events.
type ArtifactError struct {
	ID              int64     `json:"id"`
	InvestigationID string    `json:"investigation_id"`
	FileName        string    `json:"file_name"`
	Parser          string    `json:"parser,omitempty"`
	Phase           string    `json:"phase,omitempty"` // save | parse | empty
	Message         string    `json:"message"`
	CreatedAt       time.Time `json:"created_at"`
}
