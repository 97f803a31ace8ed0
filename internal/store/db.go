// Package store persists judgment history. Charts are stored as msgpack
// blobs next to the JSON verdict so a past judgment can be re-examined with
// the exact snapshot that produced it; rows expire on a retention schedule.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the history database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (creating if needed) the judgment history database with WAL
// journaling and a busy timeout suited to long-running single-writer use.
func Open(path string) (*DB, error) {
	if !strings.HasPrefix(path, "file:") {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		path = abs
	}

	connStr := path + "?_pragma=journal_mode(WAL)"
	connStr += "&_pragma=synchronous(NORMAL)"
	connStr += "&_pragma=busy_timeout(5000)"
	connStr += "&_pragma=foreign_keys(1)"
	connStr += "&_pragma=temp_store(MEMORY)"

	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) migrate() error {
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS judgments (
			id          TEXT PRIMARY KEY,
			asked_at    INTEGER NOT NULL,
			question    TEXT NOT NULL DEFAULT '',
			querent     TEXT NOT NULL,
			quesited    TEXT NOT NULL,
			verdict     TEXT NOT NULL,
			confidence  INTEGER NOT NULL,
			chart       BLOB NOT NULL,
			result      TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			expires_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_judgments_expires ON judgments(expires_at);
		CREATE INDEX IF NOT EXISTS idx_judgments_created ON judgments(created_at);
	`)
	if err != nil {
		return fmt.Errorf("migrate judgments table: %w", err)
	}
	return nil
}

// Conn exposes the underlying connection for repositories.
func (d *DB) Conn() *sql.DB { return d.conn }

// Close closes the database.
func (d *DB) Close() error { return d.conn.Close() }
