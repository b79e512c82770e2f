package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
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
  id              VARCHAR(64)  NOT NULL PRIMARY KEY,
  created_at      DATETIME(3)  NOT NULL,
  status          VARCHAR(16)  NOT NULL,
  files_received  INT          NOT NULL DEFAULT 0,
  files_processed INT          NOT NULL DEFAULT 0,
  event_count     INT          NOT NULL DEFAULT 0,
  report          MEDIUMTEXT   NOT NULL,
  timeline_json   JSON         NOT NULL,
  archive_url     VARCHAR(512) NOT NULL DEFAULT '',
  duration_ms     BIGINT       NOT NULL DEFAULT 0,
  KEY idx_created_at (created_at)
);
CREATE TABLE IF NOT EXISTS forensic_artifact_errors (
  id               BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
  investigation_id VARCHAR(64)  NOT NULL,
  file_name        VARCHAR(255) NOT NULL,
  parser           VARCHAR(32)  NOT NULL,
  phase            VARCHAR(16)  NOT NULL,
  message          TEXT         NOT NULL,
  created_at       DATETIME(3)  NOT NULL,
  KEY idx_investigation (investigation_id, created_at)
);`

// EnsureSchema creates the tables when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range splitStatements(schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
