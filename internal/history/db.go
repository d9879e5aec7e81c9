// Package history persists process runs in SQLite so past attempts can be
// listed after the supervising program exits.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/procwatch/internal/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guid TEXT NOT NULL UNIQUE,
	win_id TEXT NOT NULL DEFAULT '',
	label TEXT NOT NULL,
	command TEXT NOT NULL,
	args TEXT NOT NULL DEFAULT '[]',
	work_dir TEXT,
	detached INTEGER NOT NULL DEFAULT 0,
	pid INTEGER,
	state TEXT NOT NULL,
	exit_code INTEGER,
	exit_status TEXT,
	error_code TEXT,
	started_at INTEGER NOT NULL,
	finished_at INTEGER,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// DB owns the SQLite connection.
type DB struct {
	conn *sql.DB
	runs *Repository
}

// NewDB opens (creating if needed) the history database at path and applies
// the schema. The parent directory is created with 0700 permissions.
func NewDB(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := "file:" + filepath.ToSlash(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=foreign_keys(1)"
	log.Debug(log.CatDB, "Opening database", "path", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.ErrorErr(log.CatDB, "Failed to open database", err, "path", path)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		log.ErrorErr(log.CatDB, "Failed to ping database", err, "path", path)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info(log.CatDB, "Connected to database", "path", path)
	return &DB{conn: conn, runs: newRepository(conn)}, nil
}

// Runs returns the run repository.
func (d *DB) Runs() *Repository {
	return d.runs
}

// Close closes the connection.
func (d *DB) Close() error {
	return d.conn.Close()
}
