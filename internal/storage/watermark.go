// Package storage provides persistence for sync watermarks, sync-key leases and secrets.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// formatWatermark renders a watermark in the format every backend stores.
func formatWatermark(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseWatermark parses a stored watermark, treating blank values as absent.
func parseWatermark(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing watermark %q: %w", value, err)
	}

	return t.UTC(), nil
}
