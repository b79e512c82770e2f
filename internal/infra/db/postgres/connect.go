package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS forensic_investigations (
  id              VARCHAR(64)  PRIMARY KEY,
  created_at      TIMESTAMPTZ  NOT NULL,
  status          VARCHAR(16)  NOT NULL,
  files_received  INT          NOT NULL DEFAULT 0,
  files_processed INT          NOT NULL DEFAULT 0,
  event_count     INT          NOT NULL DEFAULT 0,
  report          TEXT         NOT NULL,
  timeline_json   JSONB        NOT NULL,
  archive_url     VARCHAR(512) NOT NULL DEFAULT '',
  duration_ms     BIGINT       NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_forensic_investigations_created ON forensic_investigations (created_at);
CREATE TABLE IF NOT EXISTS forensic_artifact_errors (
  id               BIGSERIAL    PRIMARY KEY,
  investigation_id VARCHAR(64)  NOT NULL,
  file_name        VARCHAR(255) NOT NULL,
  parser           VARCHAR(32)  NOT NULL,
  phase            VARCHAR(16)  NOT NULL,
  message          TEXT         NOT NULL,
  created_at       TIMESTAMPTZ  NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_forensic_artifact_errors_inv ON forensic_artifact_errors (investigation_id, created_at);`

// EnsureSchema creates the tables when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
