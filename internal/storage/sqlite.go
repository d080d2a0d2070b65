package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore keeps watermarks in a local SQLite database, for CLI runs.
type SQLiteStore struct {
	db *sql.DB
}

// LastSyncTime returns the watermark for key, or the zero time if none is stored.
func (s *SQLiteStore) LastSyncTime(ctx context.Context, key string) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT last_sync_time FROM watermarks WHERE sync_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("querying watermark: %w", err)
	}

	return parseWatermark(value)
}

// SetLastSyncTime stores the watermark for key.
func (s *SQLiteStore) SetLastSyncTime(ctx context.Context, key string, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watermarks (sync_key, last_sync_time, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(sync_key) DO UPDATE SET
			last_sync_time = excluded.last_sync_time,
			updated_at = excluded.updated_at
	`, key, formatWatermark(t), formatWatermark(time.Now()))
	if err != nil {
		return fmt.Errorf("saving watermark: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// NewSQLiteStore opens (creating if needed) the watermark database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS watermarks (
			sync_key TEXT PRIMARY KEY,
			last_sync_time TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating watermarks table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}
