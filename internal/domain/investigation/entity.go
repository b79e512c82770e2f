package investigation

import (
	"time"

	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
)

// ID identifier type
type ID string

// Status enum
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Investigation is one analyzed batch of evidence files.
type Investigation struct {
	ID             ID               `json:"id"`
	CreatedAt      time.Time        `json:"created_at"`
	Status         Status           `json:"status"`
	FilesReceived  int              `json:"files_received"`
	FilesProcessed int              `json:"files_processed"`
	EventCount     int              `json:"event_count"`
	Report         string           `json:"report"`
	Timeline       []evidence.Event `json:"timeline"`
	ArchiveURL     string           `json:"archive_url,omitempty"`
	DurationMS     int64            `json:"duration_ms"`
}
