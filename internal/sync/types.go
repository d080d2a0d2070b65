// Package sync runs incremental synchronisations from a source system to a target
// system, advancing a per-key watermark only once the window has been covered.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/peteski22/prnbridge/internal/delta"
	"github.com/peteski22/prnbridge/internal/remote"
)

// Sync keys. Each names one runner and its watermark.
const (
	KeyFetchNpwdIssuedPrns      = "FetchNpwdIssuedPrns"
	KeyFetchRrepwIssuedPrns     = "FetchRrepwIssuedPrns"
	KeyUpdatePrns               = "UpdatePrns"
	KeyUpdateRrepwPrns          = "UpdateRrepwPrns"
	KeyUpdateWasteOrganisations = "UpdateWasteOrganisations"
	KeyUpdatedProducers         = "UpdatedProducers"
	KeyUpdatedRrepwProducers    = "UpdatedRrepwProducers"
)

// Keys lists every sync key.
var Keys = []string{
	KeyFetchNpwdIssuedPrns,
	KeyFetchRrepwIssuedPrns,
	KeyUpdatePrns,
	KeyUpdateRrepwPrns,
	KeyUpdateWasteOrganisations,
	KeyUpdatedProducers,
	KeyUpdatedRrepwProducers,
}

const (
	// AdvanceOnEmpty advances the watermark to the window end when the source returns nothing.
	AdvanceOnEmpty EmptyPolicy = iota

	// HoldOnEmpty leaves the watermark untouched when the source returns nothing.
	HoldOnEmpty
)

const (
	// StatusCompleted means the window was pushed and the watermark advanced.
	StatusCompleted Status = iota

	// StatusDisabled means the runner's feature flag is off.
	StatusDisabled

	// StatusSkippedLeased means another invocation holds the sync key lease.
	StatusSkippedLeased

	// StatusNoChanges means the window was empty or the source returned nothing.
	StatusNoChanges

	// StatusAbortedTransient means a push failed transiently and the run stopped.
	StatusAbortedTransient

	// StatusAborted means the run failed before pushing, e.g. while fetching.
	StatusAborted
)

// EmptyPolicy decides what a run that fetched nothing does with the watermark.
type EmptyPolicy int

// String returns the policy name.
func (p EmptyPolicy) String() string {
	switch p {
	case AdvanceOnEmpty:
		return "advance_on_empty"
	case HoldOnEmpty:
		return "hold_on_empty"
	default:
		return fmt.Sprintf("empty_policy(%d)", int(p))
	}
}

// Status is the terminal state of a run.
type Status int

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusDisabled:
		return "disabled"
	case StatusSkippedLeased:
		return "skipped_leased"
	case StatusNoChanges:
		return "no_changes"
	case StatusAbortedTransient:
		return "aborted_transient"
	case StatusAborted:
		return "aborted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Failure records one record that could not be pushed.
type Failure struct {
	// Class is how the failure was classified.
	Class remote.Class

	// Err is the failure.
	Err error

	// ID identifies the record, or the batch for bulk pushes.
	ID string
}

// Outcome contains the result of one run.
type Outcome struct {
	// Attempted is the number of records handed to the target.
	Attempted int

	// DryRun indicates pushes were logged rather than sent.
	DryRun bool

	// EffectiveTo is the watermark the run advances to, after batching.
	EffectiveTo time.Time

	// Failures lists the records that were not pushed, other than skipped ones.
	Failures []Failure

	// Fetched is the number of records returned by the source.
	Fetched int

	// Key is the sync key.
	Key string

	// Pushed is the number of records the target accepted.
	Pushed int

	// RunID identifies the run in logs and as the lease owner.
	RunID string

	// Skipped is the number of records skipped because of a skip-listed status.
	Skipped int

	// Status is the terminal state.
	Status Status

	// Truncated indicates the fetched records exceeded the batch size.
	Truncated bool

	// WatermarkAdvanced indicates the watermark was written.
	WatermarkAdvanced bool

	// Window is the window computed for the run.
	Window delta.Window
}

// StateStore persists the watermark of each sync key.
type StateStore interface {
	// LastSyncTime returns the watermark for key, or the zero time if none is stored.
	LastSyncTime(ctx context.Context, key string) (time.Time, error)

	// SetLastSyncTime stores the watermark for key.
	SetLastSyncTime(ctx context.Context, key string, t time.Time) error
}

// Leaser grants exclusive, expiring leases on sync keys.
type Leaser interface {
	// Acquire takes the lease on key for owner, reporting false if someone else holds it.
	Acquire(ctx context.Context, key string, owner string, ttl time.Duration) (bool, error)

	// Release gives up the lease on key if owner holds it.
	Release(ctx context.Context, key string, owner string) error
}

// Notifier emails operators.
type Notifier interface {
	// SendErrorEmail sends a failure notification.
	SendErrorEmail(ctx context.Context, subject string, body string) error
}

// Telemetry records custom events.
type Telemetry interface {
	// Event records a named event with properties. Implementations must be safe for concurrent use.
	Event(ctx context.Context, name string, props map[string]string)
}

// Source fetches the records changed within [from, to).
type Source[S any] interface {
	Fetch(ctx context.Context, from time.Time, to time.Time) ([]S, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc[S any] func(ctx context.Context, from time.Time, to time.Time) ([]S, error)

// Fetch calls f.
func (f SourceFunc[S]) Fetch(ctx context.Context, from time.Time, to time.Time) ([]S, error) {
	return f(ctx, from, to)
}

// Mapper converts a source record to the target's shape.
type Mapper[S any, T any] interface {
	Map(record S) (T, error)
}

// MapperFunc adapts a function to a Mapper.
type MapperFunc[S any, T any] func(record S) (T, error)

// Map calls f.
func (f MapperFunc[S, T]) Map(record S) (T, error) {
	return f(record)
}

// Identity returns a Mapper that passes records through unchanged.
func Identity[S any]() Mapper[S, S] {
	return MapperFunc[S, S](func(record S) (S, error) { return record, nil })
}

// BulkTarget accepts a whole batch in one call.
type BulkTarget[T any] interface {
	PushBatch(ctx context.Context, items []T) error
}

// BulkTargetFunc adapts a function to a BulkTarget.
type BulkTargetFunc[T any] func(ctx context.Context, items []T) error

// PushBatch calls f.
func (f BulkTargetFunc[T]) PushBatch(ctx context.Context, items []T) error {
	return f(ctx, items)
}

// ItemTarget accepts one record per call.
type ItemTarget[T any] interface {
	Push(ctx context.Context, item T) error
}

// ItemTargetFunc adapts a function to an ItemTarget.
type ItemTargetFunc[T any] func(ctx context.Context, item T) error

// Push calls f.
func (f ItemTargetFunc[T]) Push(ctx context.Context, item T) error {
	return f(ctx, item)
}
