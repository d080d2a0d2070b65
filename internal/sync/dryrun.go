package sync

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// dryRunBulkTarget logs batches instead of pushing them.
type dryRunBulkTarget[T any] struct {
	counter uint64
	key     string
	logger  *slog.Logger
}

// PushBatch logs what would be pushed.
func (d *dryRunBulkTarget[T]) PushBatch(ctx context.Context, items []T) error {
	n := atomic.AddUint64(&d.counter, 1)

	d.logger.InfoContext(ctx, "[DRY-RUN] would push batch",
		"sync_key", d.key,
		"batch", n,
		"count", len(items))

	for i, item := range items {
		d.logger.DebugContext(ctx, "[DRY-RUN] batch item", "sync_key", d.key, "index", i, "item", item)
	}

	return nil
}

// dryRunItemTarget logs items instead of pushing them.
type dryRunItemTarget[T any] struct {
	counter uint64
	key     string
	logger  *slog.Logger
}

// Push logs what would be pushed.
func (d *dryRunItemTarget[T]) Push(ctx context.Context, item T) error {
	n := atomic.AddUint64(&d.counter, 1)

	d.logger.InfoContext(ctx, "[DRY-RUN] would push item",
		"sync_key", d.key,
		"item_number", n,
		"item", item)

	return nil
}
