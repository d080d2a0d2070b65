package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/peteski22/prnbridge/internal/delta"
	"github.com/peteski22/prnbridge/internal/remote"
)

const (
	// defaultLeaseTTL bounds how long a crashed run can block its sync key.
	defaultLeaseTTL = 15 * time.Minute

	// eventItemPushed is the telemetry event recorded per pushed record.
	eventItemPushed = "SyncItemPushed"
)

// Config holds the configuration for creating a Runner.
type Config[S any, T any] struct {
	// Bulk pushes the whole batch in one call. Exactly one of Bulk and PerItem is required.
	Bulk BulkTarget[T]

	// Classifier classifies push failures.
	Classifier remote.Classifier

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// DryRun logs pushes instead of sending them and never writes the watermark.
	DryRun bool

	// EmptyPolicy decides whether an empty fetch advances the watermark.
	EmptyPolicy EmptyPolicy

	// Enabled is the runner's feature flag.
	Enabled bool

	// Identify returns a record identifier for logs and telemetry.
	Identify func(S) string

	// Key is the sync key.
	Key string

	// LeaseTTL is how long the sync key lease is held. Defaults to 15 minutes.
	LeaseTTL time.Duration

	// Leaser guards the sync key against overlapping runs. Optional.
	Leaser Leaser

	// Logger is the structured logger for the runner.
	Logger *slog.Logger

	// Mapper converts source records to the target's shape.
	Mapper Mapper[S, T]

	// MaxBatchSize caps the records pushed per run. Zero or less means no cap.
	MaxBatchSize int

	// Notifier emails operators when a push fails on the server side. Optional.
	Notifier Notifier

	// Parallelism is the number of concurrent per-item pushes. Values below 2 push sequentially.
	Parallelism int

	// PerItem pushes one record per call. Exactly one of Bulk and PerItem is required.
	PerItem ItemTarget[T]

	// Source fetches the changed records.
	Source Source[S]

	// Stamp returns the last-changed time of a record, used for batching.
	Stamp func(S) time.Time

	// StateStore persists the watermark.
	StateStore StateStore

	// Telemetry records per-item events. Optional.
	Telemetry Telemetry

	// Window shapes the delta window.
	Window delta.WindowConfig
}

// validate checks that all required Config fields are set.
func (c *Config[S, T]) validate() error {
	var errs []error
	if c.Key == "" {
		errs = append(errs, errors.New("sync key is required"))
	}
	if c.Source == nil {
		errs = append(errs, errors.New("source is required"))
	}
	if c.Mapper == nil {
		errs = append(errs, errors.New("mapper is required"))
	}
	if (c.Bulk == nil) == (c.PerItem == nil) {
		errs = append(errs, errors.New("exactly one of bulk or per-item target is required"))
	}
	if c.Stamp == nil {
		errs = append(errs, errors.New("stamp function is required"))
	}
	if c.StateStore == nil {
		errs = append(errs, errors.New("state store is required"))
	}
	if c.Window.DefaultStart.IsZero() {
		errs = append(errs, errors.New("default start date is required"))
	}
	if c.Window.PollingLag < 0 {
		errs = append(errs, fmt.Errorf("polling lag must not be negative, got %v", c.Window.PollingLag))
	}
	return errors.Join(errs...)
}

// Runner executes one sync key: window, fetch, batch, map, push, advance.
type Runner[S any, T any] struct {
	bulk         BulkTarget[T]
	classifier   remote.Classifier
	clock        func() time.Time
	dryRun       bool
	emptyPolicy  EmptyPolicy
	enabled      bool
	identify     func(S) string
	key          string
	leaseTTL     time.Duration
	leaser       Leaser
	logger       *slog.Logger
	mapper       Mapper[S, T]
	maxBatchSize int
	notifier     Notifier
	parallelism  int
	perItem      ItemTarget[T]
	source       Source[S]
	stamp        func(S) time.Time
	stateStore   StateStore
	telemetry    Telemetry
	window       delta.WindowConfig
}

// New creates a new Runner.
func New[S any, T any](cfg Config[S, T]) (*Runner[S, T], error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config for %s: %w", cfg.Key, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	identify := cfg.Identify
	if identify == nil {
		identify = func(S) string { return "" }
	}

	leaseTTL := cfg.LeaseTTL
	if leaseTTL <= 0 {
		leaseTTL = defaultLeaseTTL
	}

	bulk, perItem := cfg.Bulk, cfg.PerItem
	if cfg.DryRun {
		if bulk != nil {
			bulk = &dryRunBulkTarget[T]{key: cfg.Key, logger: logger}
		}
		if perItem != nil {
			perItem = &dryRunItemTarget[T]{key: cfg.Key, logger: logger}
		}
	}

	return &Runner[S, T]{
		bulk:         bulk,
		classifier:   cfg.Classifier,
		clock:        clock,
		dryRun:       cfg.DryRun,
		emptyPolicy:  cfg.EmptyPolicy,
		enabled:      cfg.Enabled,
		identify:     identify,
		key:          cfg.Key,
		leaseTTL:     leaseTTL,
		leaser:       cfg.Leaser,
		logger:       logger,
		mapper:       cfg.Mapper,
		maxBatchSize: cfg.MaxBatchSize,
		notifier:     cfg.Notifier,
		parallelism:  cfg.Parallelism,
		perItem:      perItem,
		source:       cfg.Source,
		stamp:        cfg.Stamp,
		stateStore:   cfg.StateStore,
		telemetry:    cfg.Telemetry,
		window:       cfg.Window,
	}, nil
}

// Key returns the runner's sync key.
func (r *Runner[S, T]) Key() string {
	return r.key
}

// Run executes one sync cycle.
//
// A transient push failure stops the run without advancing the watermark and is
// returned, so that the next scheduled run retries the same window. Non-transient
// and skip-listed failures are recorded in the Outcome and do not stop the run.
func (r *Runner[S, T]) Run(ctx context.Context) (*Outcome, error) {
	out := &Outcome{
		DryRun: r.dryRun,
		Key:    r.key,
		RunID:  uuid.NewString(),
	}
	logger := r.logger.With("sync_key", r.key, "run_id", out.RunID)

	if !r.enabled {
		logger.InfoContext(ctx, "sync disabled by feature flag")
		out.Status = StatusDisabled
		return out, nil
	}

	if r.leaser != nil {
		acquired, err := r.leaser.Acquire(ctx, r.key, out.RunID, r.leaseTTL)
		if err != nil {
			out.Status = StatusAborted
			return out, fmt.Errorf("acquiring lease for %s: %w", r.key, err)
		}
		if !acquired {
			logger.InfoContext(ctx, "sync key is leased by another run, skipping")
			out.Status = StatusSkippedLeased
			return out, nil
		}
		defer r.releaseLease(ctx, logger, out.RunID)
	}

	window, err := delta.ComputeWindow(ctx, r.stateStore, r.key, r.clock(), r.window)
	if err != nil {
		out.Status = StatusAborted
		return out, err
	}
	out.Window = window
	out.EffectiveTo = window.To

	if window.LaggedBy > 0 {
		logger.InfoContext(ctx, "window end rolled back by polling lag",
			"lag", window.LaggedBy,
			"to", window.To)
	}

	logger.InfoContext(ctx, "starting sync",
		"from", window.From,
		"to", window.To,
		"from_watermark", window.FromWatermark,
		"dry_run", r.dryRun)

	if window.Empty() {
		logger.InfoContext(ctx, "window is empty, nothing to fetch")
		out.Status = StatusNoChanges
		return out, nil
	}

	records, err := r.source.Fetch(ctx, window.From, window.To)
	if err != nil {
		out.Status = StatusAborted
		return out, fmt.Errorf("fetching %s: %w", r.key, err)
	}
	out.Fetched = len(records)

	if len(records) == 0 {
		logger.WarnContext(ctx, "no changes found in window", "empty_policy", r.emptyPolicy.String())
		out.Status = StatusNoChanges
		if r.emptyPolicy == AdvanceOnEmpty {
			if err := r.advance(ctx, logger, out, window.To); err != nil {
				return out, err
			}
		}
		return out, nil
	}

	kept, effectiveTo, truncated := delta.Truncate(records, r.maxBatchSize, window.To, r.stamp)
	out.EffectiveTo = effectiveTo
	out.Truncated = truncated
	if truncated {
		logger.InfoContext(ctx, fmt.Sprintf("batched %d of %d records", len(kept), len(records)),
			"max_batch_size", r.maxBatchSize,
			"effective_to", effectiveTo)
		if !effectiveTo.After(window.From) {
			logger.WarnContext(ctx, "batch ends at window start, watermark cannot advance; raise max batch size",
				"max_batch_size", r.maxBatchSize,
				"from", window.From,
				"effective_to", effectiveTo)
		}
	}

	items := r.mapAll(ctx, logger, out, kept)

	if r.bulk != nil {
		err = r.pushBulk(ctx, logger, out, items)
	} else {
		err = r.pushEach(ctx, logger, out, items)
	}
	if err != nil {
		out.Status = StatusAbortedTransient
		logger.ErrorContext(ctx, "sync aborted on transient failure, watermark not advanced",
			"pushed", out.Pushed,
			"attempted", out.Attempted,
			"error", err)
		r.notifyServerFailure(ctx, logger, err)
		return out, fmt.Errorf("pushing %s: %w", r.key, err)
	}

	if err := r.advance(ctx, logger, out, effectiveTo); err != nil {
		out.Status = StatusAborted
		return out, err
	}

	out.Status = StatusCompleted
	logger.InfoContext(ctx, "sync complete",
		"fetched", out.Fetched,
		"attempted", out.Attempted,
		"pushed", out.Pushed,
		"skipped", out.Skipped,
		"failed", len(out.Failures),
		"watermark", effectiveTo)

	return out, nil
}

// advance writes the watermark, unless this is a dry run.
func (r *Runner[S, T]) advance(ctx context.Context, logger *slog.Logger, out *Outcome, to time.Time) error {
	if r.dryRun {
		logger.InfoContext(ctx, "[DRY-RUN] would advance watermark", "watermark", to)
		return nil
	}

	if err := r.stateStore.SetLastSyncTime(ctx, r.key, to); err != nil {
		return fmt.Errorf("advancing watermark for %s: %w", r.key, err)
	}
	out.WatermarkAdvanced = true

	return nil
}

// notifyServerFailure emails operators when err carries a 5xx or 408 status.
func (r *Runner[S, T]) notifyServerFailure(ctx context.Context, logger *slog.Logger, err error) {
	if r.notifier == nil || !remote.IsServerFailure(err) {
		return
	}

	code, _ := remote.StatusCode(err)
	subject := fmt.Sprintf("%s failed with status %d", r.key, code)
	body := fmt.Sprintf("Sync %s was aborted.\n\nStatus code: %d\n\nResponse body:\n%s\n",
		r.key, code, remote.ResponseBody(err))

	if sendErr := r.notifier.SendErrorEmail(context.WithoutCancel(ctx), subject, body); sendErr != nil {
		logger.ErrorContext(ctx, "sending error email", "error", sendErr)
	}
}

// releaseLease gives up the sync key lease, logging failures.
func (r *Runner[S, T]) releaseLease(ctx context.Context, logger *slog.Logger, owner string) {
	if err := r.leaser.Release(context.WithoutCancel(ctx), r.key, owner); err != nil {
		logger.WarnContext(ctx, "releasing lease", "error", err)
	}
}

// recordPushed emits telemetry for a pushed record.
func (r *Runner[S, T]) recordPushed(ctx context.Context, id string) {
	if r.telemetry == nil {
		return
	}

	r.telemetry.Event(ctx, eventItemPushed, map[string]string{
		"dry_run":  fmt.Sprint(r.dryRun),
		"id":       id,
		"sync_key": r.key,
	})
}
