package storage

import (
	"context"
	"time"
)

// NoopStore is a watermark store that does nothing.
// Used for dry-run mode where we don't persist state.
type NoopStore struct {
	since time.Time
}

// NewNoopStore creates a new NoopStore that reports since for every key.
func NewNoopStore(since time.Time) *NoopStore {
	return &NoopStore{since: since}
}

// LastSyncTime returns the configured time.
func (s *NoopStore) LastSyncTime(_ context.Context, _ string) (time.Time, error) {
	return s.since, nil
}

// SetLastSyncTime does nothing.
func (s *NoopStore) SetLastSyncTime(_ context.Context, _ string, _ time.Time) error {
	return nil
}
