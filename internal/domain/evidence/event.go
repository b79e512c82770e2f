package evidence

import (
	"context"
	"time"
)

// Source labels emitted by the parsers.
const (
	SourceBrowser    = "browser"
	SourceAuthLog    = "auth_log"
	SourceFileSystem = "file_system"
	SourceUnknown    = "unknown"
)

// Event is a single dated fact extracted from an evidence file.
type Event struct {
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
	Source      string `json:"source"`

	// ParsedTime is filled by the timeline builder; zero when the
	// timestamp could not be understood.
	ParsedTime time.Time `json:"-"`
}

// Parser extracts events from a file on local disk.
type Parser interface {
	Parse(ctx context.Context, path string) ([]Event, error)
}

// Kind names the parser that handled an artifact.
type Kind string

const (
	KindBrowser     Kind = "browser_history"
	KindAuthLog     Kind = "auth_log"
	KindBinary      Kind = "binary"
	KindUnsupported Kind = "unsupported"
)
