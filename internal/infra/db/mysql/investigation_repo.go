package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
	domain "github.com/bryanwahyu/forensiq/internal/domain/investigation"
)

type InvestigationRepository struct {
	db *sql.DB
}

func NewInvestigationRepository(db *sql.DB) *InvestigationRepository {
	return &InvestigationRepository{db: db}
}

const selectColumns = `
SELECT id, created_at, status, files_received, files_processed, event_count,
       report, timeline_json, archive_url, duration_ms
FROM forensic_investigations`

// Save insert/update Investigation record
func (r *InvestigationRepository) Save(ctx context.Context, inv *domain.Investigation) error {
	const q = `
INSERT INTO forensic_investigations
(id, created_at, status, files_received, files_processed, event_count,
 report, timeline_json, archive_url, duration_ms)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status),
 files_received=VALUES(files_received), files_processed=VALUES(files_processed),
 event_count=VALUES(event_count), report=VALUES(report), timeline_json=VALUES(timeline_json),
 archive_url=VALUES(archive_url), duration_ms=VALUES(duration_ms);
`
	timeline := inv.Timeline
	if timeline == nil {
		timeline = []evidence.Event{}
	}
	tl, err := json.Marshal(timeline)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	created := inv.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = r.db.ExecContext(ctx, q,
		inv.ID, created, stringOrDash(string(inv.Status)),
		inv.FilesReceived, inv.FilesProcessed, inv.EventCount,
		inv.Report, string(tl), inv.ArchiveURL, inv.DurationMS,
	)
	return err
}

// Get by ID; sql.ErrNoRows when missing
func (r *InvestigationRepository) Get(ctx context.Context, id domain.ID) (*domain.Investigation, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id=? LIMIT 1;`, id)
	return scanInvestigation(row)
}

// Latest investigations, newest first
func (r *InvestigationRepository) Latest(ctx context.Context, limit int) ([]*domain.Investigation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, id DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Investigation
	for rows.Next() {
		inv, err := scanInvestigation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvestigation(row scanner) (*domain.Investigation, error) {
	var inv domain.Investigation
	var tl []byte
	if err := row.Scan(
		&inv.ID, &inv.CreatedAt, &inv.Status, &inv.FilesReceived, &inv.FilesProcessed, &inv.EventCount,
		&inv.Report, &tl, &inv.ArchiveURL, &inv.DurationMS,
	); err != nil {
		return nil, err
	}
	if len(tl) > 0 {
		if err := json.Unmarshal(tl, &inv.Timeline); err != nil {
			return nil, fmt.Errorf("decode timeline of %s: %w", inv.ID, err)
		}
	}
	return &inv, nil
}
