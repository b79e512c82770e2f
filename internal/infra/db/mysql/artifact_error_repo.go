package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/forensiq/internal/domain/artifacterrors"
)

type ArtifactErrorRepository struct {
	db *sql.DB
}

func NewArtifactErrorRepository(db *sql.DB) *ArtifactErrorRepository {
	return &ArtifactErrorRepository{db: db}
}

func (r *ArtifactErrorRepository) Save(ctx context.Context, e *domain.ArtifactError) error {
	const q = `
INSERT INTO forensic_artifact_errors
  (investigation_id, file_name, parser, phase, message, created_at)
VALUES (?,?,?,?,?,?)
`
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := r.db.ExecContext(ctx, q,
		stringOrDash(e.InvestigationID), stringOrDash(e.FileName),
		stringOrDash(e.Parser), stringOrDash(e.Phase), msg, created)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

func (r *ArtifactErrorRepository) ListByInvestigation(ctx context.Context, investigationID string, limit int) ([]*domain.ArtifactError, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, investigation_id, file_name, parser, phase, message, created_at
FROM forensic_artifact_errors
WHERE investigation_id = ?
ORDER BY created_at ASC, id ASC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, investigationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ArtifactError
	for rows.Next() {
		var e domain.ArtifactError
		if err := rows.Scan(&e.ID, &e.InvestigationID, &e.FileName, &e.Parser, &e.Phase, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
