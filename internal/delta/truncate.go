package delta

import (
	"slices"
	"time"
)

// Truncate limits records to maxBatchSize, oldest first.
//
// When truncation happens the effective upper bound becomes the stamp of the newest
// kept record, so that anything changed after it stays ahead of the next watermark.
// A zero stamp on that record leaves the original bound in place.
// The input slice is not modified.
func Truncate[T any](
	records []T,
	maxBatchSize int,
	to time.Time,
	stamp func(T) time.Time,
) (kept []T, effectiveTo time.Time, truncated bool) {
	if maxBatchSize <= 0 || len(records) <= maxBatchSize || stamp == nil {
		return records, to, false
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return stamp(a).Compare(stamp(b))
	})

	kept = sorted[:maxBatchSize]

	last := stamp(kept[len(kept)-1])
	if last.IsZero() {
		return kept, to, true
	}

	return kept, last.UTC(), true
}
