package investigation

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by repositories that do not surface sql.ErrNoRows.
var ErrNotFound = errors.New("investigation not found")

// Repository port (persistence of finished investigations)
type Repository interface {
	Save(ctx context.Context, inv *Investigation) error
	Get(ctx context.Context, id ID) (*Investigation, error)
	Latest(ctx context.Context, limit int) ([]*Investigation, error)
}

// ArchiveStore port (long-term copy of evidence and reports)
type ArchiveStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	UploadAndCleanup(ctx context.Context, localPath, key string) (string, error)
}

// Locker keeps uploaded evidence on local disk while it is parsed.
type Locker interface {
	Open(id ID) (string, error)
	Save(dir, name string, r io.Reader) (string, error)
	Release(dir string) error
}
