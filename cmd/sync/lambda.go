package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/peteski22/prnbridge/internal/config"
	"github.com/peteski22/prnbridge/internal/sync"
)

// Event is the scheduled event that triggers a sync.
type Event struct {
	// Function is the sync key to run.
	Function string `json:"function"`
}

// Response summarises a sync run for the Lambda invocation result.
type Response struct {
	Failed            int    `json:"failed"`
	Fetched           int    `json:"fetched"`
	Pushed            int    `json:"pushed"`
	RunID             string `json:"runId"`
	Skipped           int    `json:"skipped"`
	Status            string `json:"status"`
	SyncKey           string `json:"syncKey"`
	WatermarkAdvanced bool   `json:"watermarkAdvanced"`
}

// newResponse converts a run outcome to a Response.
func newResponse(out *sync.Outcome) *Response {
	return &Response{
		Failed:            len(out.Failures),
		Fetched:           out.Fetched,
		Pushed:            out.Pushed,
		RunID:             out.RunID,
		Skipped:           out.Skipped,
		Status:            out.Status.String(),
		SyncKey:           out.Key,
		WatermarkAdvanced: out.WatermarkAdvanced,
	}
}

// handler runs the sync named by the scheduled event.
func handler(ctx context.Context, event Event) (*Response, error) {
	if event.Function == "" {
		return nil, errors.New("event has no function")
	}

	logger := slog.Default().With("sync_key", event.Function)

	settings, err := config.Load()
	if err != nil {
		logger.ErrorContext(ctx, "invalid configuration", "error", err)
		return nil, err
	}

	a, err := newApp(ctx, settings, runOptions{}, logger)
	if err != nil {
		logger.ErrorContext(ctx, "failed to initialise", "error", err)
		return nil, err
	}
	defer func() { _ = a.Close() }()

	out, err := a.Run(ctx, event.Function)
	if err != nil {
		logger.ErrorContext(ctx, "sync failed", "error", err)
		if out == nil {
			return nil, err
		}
		return newResponse(out), err
	}

	return newResponse(out), nil
}
