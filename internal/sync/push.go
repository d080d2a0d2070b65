package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/peteski22/prnbridge/internal/remote"
	"golang.org/x/sync/errgroup"
)

// mapped is a record converted to the target's shape.
type mapped[T any] struct {
	id   string
	item T
}

// mapAll converts records, recording mapping failures as non-transient.
func (r *Runner[S, T]) mapAll(ctx context.Context, logger *slog.Logger, out *Outcome, records []S) []mapped[T] {
	items := make([]mapped[T], 0, len(records))

	for i, record := range records {
		id := r.identify(record)
		if id == "" {
			id = "#" + strconv.Itoa(i)
		}

		item, err := r.mapper.Map(record)
		if err != nil {
			logger.ErrorContext(ctx, "mapping record, skipping", "id", id, "error", err)
			out.Failures = append(out.Failures, Failure{
				Class: remote.ClassNonTransient,
				Err:   fmt.Errorf("mapping: %w", err),
				ID:    id,
			})
			continue
		}

		items = append(items, mapped[T]{id: id, item: item})
	}

	return items
}

// pushBulk sends all items in one call. Only a transient failure is returned.
func (r *Runner[S, T]) pushBulk(ctx context.Context, logger *slog.Logger, out *Outcome, items []mapped[T]) error {
	if len(items) == 0 {
		logger.WarnContext(ctx, "no records left to push after mapping")
		return nil
	}

	batch := make([]T, len(items))
	for i, m := range items {
		batch[i] = m.item
	}
	out.Attempted = len(batch)

	err := r.bulk.PushBatch(ctx, batch)
	switch r.classifier.Classify(err) {
	case remote.ClassSuccess:
		out.Pushed = len(batch)
		for _, m := range items {
			r.recordPushed(ctx, m.id)
		}
		logger.InfoContext(ctx, "pushed batch", "count", len(batch))
		return nil
	case remote.ClassTransient:
		return err
	case remote.ClassSkipped:
		out.Skipped = len(batch)
		logger.WarnContext(ctx, "batch rejected with skip-listed status", "count", len(batch), "error", err)
		return nil
	default:
		logger.ErrorContext(ctx, "batch rejected, window will not be retried",
			"count", len(batch),
			"status_code", statusAttr(err),
			"error", err)
		out.Failures = append(out.Failures, Failure{
			Class: remote.ClassNonTransient,
			Err:   err,
			ID:    fmt.Sprintf("batch of %d", len(batch)),
		})
		return nil
	}
}

// pushEach sends items one at a time, or concurrently when parallelism allows.
// The first transient failure stops further pushes and is returned.
func (r *Runner[S, T]) pushEach(ctx context.Context, logger *slog.Logger, out *Outcome, items []mapped[T]) error {
	if r.parallelism > 1 {
		return r.pushParallel(ctx, logger, out, items)
	}

	for _, m := range items {
		out.Attempted++
		if err := r.pushOne(ctx, logger, out, nil, m); err != nil {
			return err
		}
	}

	return nil
}

// pushParallel pushes items with bounded concurrency. The first transient failure
// cancels in-flight siblings.
func (r *Runner[S, T]) pushParallel(ctx context.Context, logger *slog.Logger, out *Outcome, items []mapped[T]) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)

	var mu sync.Mutex

	for _, m := range items {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			mu.Lock()
			out.Attempted++
			mu.Unlock()

			return r.pushOne(gctx, logger, out, &mu, m)
		})
	}

	return g.Wait()
}

// pushOne pushes a single item and records its result in out, holding mu when set.
// Only a transient failure is returned.
func (r *Runner[S, T]) pushOne(
	ctx context.Context,
	logger *slog.Logger,
	out *Outcome,
	mu *sync.Mutex,
	m mapped[T],
) error {
	err := r.perItem.Push(ctx, m.item)
	class := r.classifier.Classify(err)

	if class == remote.ClassTransient {
		logger.ErrorContext(ctx, "transient failure pushing record",
			"id", m.id,
			"status_code", statusAttr(err),
			"error", err)
		return err
	}

	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}

	switch class {
	case remote.ClassSuccess:
		out.Pushed++
		r.recordPushed(ctx, m.id)
	case remote.ClassSkipped:
		out.Skipped++
		logger.WarnContext(ctx, "record skipped", "id", m.id, "status_code", statusAttr(err), "error", err)
	default:
		logger.ErrorContext(ctx, "pushing record, skipping", "id", m.id, "status_code", statusAttr(err), "error", err)
		out.Failures = append(out.Failures, Failure{Class: class, Err: err, ID: m.id})
	}

	return nil
}

// statusAttr returns the HTTP status carried by err, or zero.
func statusAttr(err error) int {
	code, _ := remote.StatusCode(err)
	return code
}
