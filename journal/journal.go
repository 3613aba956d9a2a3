// Package journal keeps a local audit trail of
// submission attempts in a sqlite database. Recording
// is best-effort: a journal failure is logged and never
// surfaced to the submitting client.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id         TEXT PRIMARY KEY,
	imdb_id    TEXT NOT NULL,
	scene_path TEXT NOT NULL,
	branch     TEXT NOT NULL DEFAULT '',
	pr_url     TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	error_code TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submissions_created_at
	ON submissions(created_at);
`

// Entry is one recorded submission attempt.
type Entry struct {
	ID        string    `json:"id"`
	IMDBID    string    `json:"imdb_id"`
	ScenePath string    `json:"scene_path"`
	Branch    string    `json:"branch,omitempty"`
	PRURL     string    `json:"pr_url,omitempty"`
	Status    string    `json:"status"`
	ErrorCode string    `json:"error_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Journal is a sqlite-backed submission log.
type Journal struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the journal
// database at path.
func Open(path string) (*Journal, error) {
	const errCtx = "opening journal"

	if err := os.MkdirAll(
		filepath.Dir(path), 0o755,
	); err != nil {
		return nil, fmt.Errorf(
			"%s: create dir: %w", errCtx, err,
		)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: open database: %w", errCtx, err,
		)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			return nil, fmt.Errorf(
				"%s: %s: %w", errCtx, pragma, err,
			)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf(
			"%s: apply schema: %w", errCtx, err,
		)
	}

	return &Journal{conn: conn}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.conn.Close()
}

// Record inserts one attempt. A zero ID is assigned a
// fresh UUID and a zero CreatedAt is assigned now.
func (j *Journal) Record(
	ctx context.Context,
	e Entry,
) error {
	const errCtx = "recording submission"

	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := j.conn.ExecContext(
		ctx,
		`INSERT INTO submissions
			(id, imdb_id, scene_path, branch, pr_url,
			 status, error_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.IMDBID,
		e.ScenePath,
		e.Branch,
		e.PRURL,
		e.Status,
		e.ErrorCode,
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Recent returns the most recent attempts, newest
// first.
func (j *Journal) Recent(
	ctx context.Context,
	limit int,
) ([]Entry, error) {
	const errCtx = "listing submissions"

	if limit <= 0 {
		limit = 20
	}

	rows, err := j.conn.QueryContext(
		ctx,
		`SELECT id, imdb_id, scene_path, branch,
			pr_url, status, error_code, created_at
		 FROM submissions
		 ORDER BY created_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	defer rows.Close() //nolint:errcheck

	var entries []Entry

	for rows.Next() {
		var (
			e  Entry
			at string
		)

		if err := rows.Scan(
			&e.ID,
			&e.IMDBID,
			&e.ScenePath,
			&e.Branch,
			&e.PRURL,
			&e.Status,
			&e.ErrorCode,
			&at,
		); err != nil {
			return nil, fmt.Errorf(
				"%s: scan: %w", errCtx, err,
			)
		}

		e.CreatedAt, _ = time.Parse(
			time.RFC3339Nano, at,
		)

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return entries, nil
}
