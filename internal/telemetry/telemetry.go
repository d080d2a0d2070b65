// Package telemetry records custom business events as structured log records.
package telemetry

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

// eventAttr tags log records as telemetry events for log queries.
const eventAttr = "telemetry_event"

// LogRecorder writes custom events as structured log records.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder creates a new LogRecorder. A nil logger uses slog.Default.
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRecorder{logger: logger}
}

// Event records a named event with its properties.
func (r *LogRecorder) Event(ctx context.Context, name string, props map[string]string) {
	attrs := make([]any, 0, len(props)+1)
	attrs = append(attrs, slog.String(eventAttr, name))

	for _, k := range slices.Sorted(maps.Keys(props)) {
		attrs = append(attrs, slog.String(k, props[k]))
	}

	r.logger.InfoContext(ctx, "telemetry event", attrs...)
}
