// Package delta computes the time windows that bound each incremental sync run.
package delta

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// StartDateLayout is the calendar date layout used for configured default start dates.
const StartDateLayout = "2006-01-02"

// WatermarkReader reads the last synced time for a sync key.
type WatermarkReader interface {
	// LastSyncTime returns the watermark for key, or the zero time if none was recorded.
	LastSyncTime(ctx context.Context, key string) (time.Time, error)
}

// Window is the half-open interval [From, To) covered by a sync run.
type Window struct {
	// From is the inclusive lower bound.
	From time.Time

	// FromWatermark reports whether From came from the stored watermark rather than the default start.
	FromWatermark bool

	// LaggedBy is how far To was rolled back from the sampled time.
	LaggedBy time.Duration

	// To is the exclusive upper bound.
	To time.Time
}

// Empty reports whether the window covers no time at all.
func (w Window) Empty() bool {
	return !w.From.Before(w.To)
}

// WindowConfig holds the per-runner settings that shape a window.
type WindowConfig struct {
	// DefaultStart is used when no watermark exists, or the watermark predates it.
	DefaultStart time.Time

	// PollingLag moves To back from now so that uncommitted source writes are not skipped.
	PollingLag time.Duration
}

// ComputeWindow returns the window for the next run of key.
//
// From is the stored watermark unless it is missing or earlier than the default start,
// in which case the default start is used. To is now, less the polling lag if one is set.
func ComputeWindow(
	ctx context.Context,
	store WatermarkReader,
	key string,
	now time.Time,
	cfg WindowConfig,
) (Window, error) {
	if store == nil {
		return Window{}, errors.New("watermark reader is required")
	}

	last, err := store.LastSyncTime(ctx, key)
	if err != nil {
		return Window{}, fmt.Errorf("reading watermark for %s: %w", key, err)
	}

	w := Window{
		From: cfg.DefaultStart.UTC(),
		To:   now.UTC(),
	}

	if !last.IsZero() && !last.Before(cfg.DefaultStart) {
		w.From = last.UTC()
		w.FromWatermark = true
	}

	if cfg.PollingLag > 0 {
		w.To = w.To.Add(-cfg.PollingLag)
		w.LaggedBy = cfg.PollingLag
	}

	return w, nil
}

// ParseStartDate parses a yyyy-MM-dd date as UTC midnight.
func ParseStartDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("start date is empty")
	}

	t, err := time.ParseInLocation(StartDateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing start date %q (want yyyy-MM-dd): %w", value, err)
	}

	return t, nil
}
