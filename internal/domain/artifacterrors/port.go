package artifacterrors

import (
	"context"
)

// Repository defines persistence for artifact errors
type Repository interface {
	Save(ctx context.Context, e *ArtifactError) error
	ListByInvestigation(ctx context.Context, investigationID string, limit int) ([]*ArtifactError, error)
}
