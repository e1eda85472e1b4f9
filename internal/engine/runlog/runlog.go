// Package runlog keeps a local SQLite history of generate runs.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Run is one row of the runs table.
type Run struct {
	RunID            string   `json:"run_id"`
	CreatedAt        string   `json:"created_at"`
	VideosRequested  int      `json:"videos_requested"`
	VideosProcessed  int      `json:"videos_processed"`
	ScriptsGenerated int      `json:"scripts_generated"`
	Credibility      string   `json:"credibility,omitempty"`
	SheetURL         string   `json:"sheet_url,omitempty"`
	Status           string   `json:"status"`
	Error            string   `json:"error,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// Log is a run log backed by a single SQLite file.
type Log struct {
	db *sql.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("runlog: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runlog: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("runlog: init schema: %w", err)
	}
	return &Log{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id            TEXT NOT NULL UNIQUE,
		created_at        TEXT NOT NULL,
		videos_requested  INTEGER NOT NULL DEFAULT 0,
		videos_processed  INTEGER NOT NULL DEFAULT 0,
		scripts_generated INTEGER NOT NULL DEFAULT 0,
		credibility       TEXT,
		sheet_url         TEXT,
		status            TEXT NOT NULL,
		error             TEXT,
		warnings          TEXT
	)`)
	return err
}

// Close releases the database.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}

// Record inserts r. CreatedAt defaults to now (UTC, RFC 3339).
func (l *Log) Record(ctx context.Context, r Run) error {
	if r.RunID == "" {
		return fmt.Errorf("runlog: run_id is required")
	}
	if r.CreatedAt == "" {
		r.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	var warnings []byte
	if len(r.Warnings) > 0 {
		var err error
		if warnings, err = json.Marshal(r.Warnings); err != nil {
			return fmt.Errorf("runlog: encode warnings: %w", err)
		}
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, videos_requested, videos_processed, scripts_generated,
			credibility, sheet_url, status, error, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.CreatedAt, r.VideosRequested, r.VideosProcessed, r.ScriptsGenerated,
		r.Credibility, r.SheetURL, r.Status, r.Error, string(warnings))
	if err != nil {
		return fmt.Errorf("runlog: insert: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. limit <= 0 means 20.
func (l *Log) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, created_at, videos_requested, videos_processed, scripts_generated,
			COALESCE(credibility, ''), COALESCE(sheet_url, ''), status, COALESCE(error, ''), COALESCE(warnings, '')
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: query: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var warnings string
		if err := rows.Scan(&r.RunID, &r.CreatedAt, &r.VideosRequested, &r.VideosProcessed, &r.ScriptsGenerated,
			&r.Credibility, &r.SheetURL, &r.Status, &r.Error, &warnings); err != nil {
			return nil, fmt.Errorf("runlog: scan: %w", err)
		}
		if warnings != "" {
			if err := json.Unmarshal([]byte(warnings), &r.Warnings); err != nil {
				return nil, fmt.Errorf("runlog: decode warnings: %w", err)
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
