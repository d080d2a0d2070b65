// Package runners assembles the sync runner for each sync key.
package runners

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/peteski22/prnbridge/internal/backend"
	"github.com/peteski22/prnbridge/internal/config"
	"github.com/peteski22/prnbridge/internal/npwd"
	"github.com/peteski22/prnbridge/internal/rrepw"
	"github.com/peteski22/prnbridge/internal/sync"
	"github.com/peteski22/prnbridge/internal/wasteorgs"
)

// BackendAPI defines the common backend operations used by the runners.
type BackendAPI interface {
	// SavePrn creates or updates a PRN.
	SavePrn(ctx context.Context, req *backend.SavePrnRequest) error

	// UpdatedPrns returns PRN status changes within the window.
	UpdatedPrns(ctx context.Context, q backend.PrnQuery) ([]backend.PrnStatusUpdate, error)

	// UpdatedProducers returns producers changed within the window.
	UpdatedProducers(ctx context.Context, from time.Time, to time.Time) ([]backend.UpdatedProducer, error)
}

// NpwdAPI defines the NPWD operations used by the runners.
type NpwdAPI interface {
	// IssuedPrns returns PRNs issued within the window.
	IssuedPrns(ctx context.Context, from time.Time, to time.Time) ([]npwd.Prn, error)

	// PatchPrns sends PRN status changes.
	PatchPrns(ctx context.Context, delta npwd.PrnDelta) error

	// PatchProducers sends producer changes.
	PatchProducers(ctx context.Context, delta npwd.ProducerDelta) error
}

// RrepwAPI defines the RREPW operations used by the runners.
type RrepwAPI interface {
	// IssuedPrns returns PRNs authorised within the window.
	IssuedPrns(ctx context.Context, from time.Time, to time.Time) ([]rrepw.Prn, error)

	// UpdatePrnStatus changes the status of one PRN.
	UpdatePrnStatus(ctx context.Context, prnNumber string, update rrepw.StatusUpdate) error

	// UpsertOrganisation creates or replaces one organisation.
	UpsertOrganisation(ctx context.Context, org rrepw.Organisation) error
}

// WasteOrganisationsAPI defines the waste-organisations operations used by the runners.
type WasteOrganisationsAPI interface {
	// PutOrganisation creates or replaces one organisation.
	PutOrganisation(ctx context.Context, org wasteorgs.Organisation) error
}

// IssuedPrnQueue receives issued NPWD PRNs for ingestion.
type IssuedPrnQueue interface {
	// Enqueue sends one message per PRN.
	Enqueue(ctx context.Context, prns []npwd.Prn) error
}

// Runnable is a sync runner with its types erased.
type Runnable interface {
	// Key returns the sync key.
	Key() string

	// Run executes one sync cycle.
	Run(ctx context.Context) (*sync.Outcome, error)
}

// Deps holds the clients and infrastructure shared by the runners.
// Clients a runner does not use may be nil.
type Deps struct {
	// Backend is the common backend client.
	Backend BackendAPI

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// DryRun logs pushes instead of sending them and never writes watermarks.
	DryRun bool

	// IssuedPrnQueue receives issued NPWD PRNs.
	IssuedPrnQueue IssuedPrnQueue

	// Leaser guards sync keys against overlapping runs. Optional.
	Leaser sync.Leaser

	// Logger is the structured logger for the runners.
	Logger *slog.Logger

	// Notifier emails operators about server failures. Optional.
	Notifier sync.Notifier

	// Npwd is the NPWD client.
	Npwd NpwdAPI

	// Rrepw is the RREPW client.
	Rrepw RrepwAPI

	// StateStore persists watermarks.
	StateStore sync.StateStore

	// Telemetry records per-item events. Optional.
	Telemetry sync.Telemetry

	// WasteOrganisations is the waste-organisations client.
	WasteOrganisations WasteOrganisationsAPI
}

// builder assembles the runner for one sync key.
type builder func(cfg config.Runner, deps Deps) (Runnable, error)

// builders maps each sync key to its builder.
var builders = map[string]builder{
	sync.KeyFetchNpwdIssuedPrns:      fetchNpwdIssuedPrns,
	sync.KeyFetchRrepwIssuedPrns:     fetchRrepwIssuedPrns,
	sync.KeyUpdatePrns:               updatePrns,
	sync.KeyUpdateRrepwPrns:          updateRrepwPrns,
	sync.KeyUpdateWasteOrganisations: updateWasteOrganisations,
	sync.KeyUpdatedProducers:         updatedProducers,
	sync.KeyUpdatedRrepwProducers:    updatedRrepwProducers,
}

// Keys returns every sync key, sorted.
func Keys() []string {
	return slices.Sorted(maps.Keys(builders))
}

// Settings returns the configured settings for key.
func Settings(runners config.Runners, key string) (config.Runner, bool) {
	switch key {
	case sync.KeyFetchNpwdIssuedPrns:
		return runners.FetchNpwdIssuedPrns, true
	case sync.KeyFetchRrepwIssuedPrns:
		return runners.FetchRrepwIssuedPrns, true
	case sync.KeyUpdatePrns:
		return runners.UpdatePrns, true
	case sync.KeyUpdateRrepwPrns:
		return runners.UpdateRrepwPrns, true
	case sync.KeyUpdateWasteOrganisations:
		return runners.UpdateWasteOrganisations, true
	case sync.KeyUpdatedProducers:
		return runners.UpdatedProducers, true
	case sync.KeyUpdatedRrepwProducers:
		return runners.UpdatedRrepwProducers, true
	default:
		return config.Runner{}, false
	}
}

// New builds the runner for key.
func New(key string, runners config.Runners, deps Deps) (Runnable, error) {
	build, ok := builders[key]
	if !ok {
		return nil, fmt.Errorf("unknown sync key %q (want one of %v)", key, Keys())
	}

	cfg, _ := Settings(runners, key)
	if !cfg.Enabled {
		return &disabledRunner{key: key, logger: deps.Logger}, nil
	}

	runner, err := build(cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("building %s runner: %w", key, err)
	}

	return runner, nil
}

// disabledRunner stands in for a runner whose feature flag is off.
// It needs no clients, so an unconfigured API cannot stop it from being built.
type disabledRunner struct {
	key    string
	logger *slog.Logger
}

// Key returns the sync key.
func (d *disabledRunner) Key() string {
	return d.key
}

// Run reports the runner as disabled without touching any store or API.
func (d *disabledRunner) Run(ctx context.Context) (*sync.Outcome, error) {
	logger := d.logger
	if logger == nil {
		logger = slog.Default()
	}

	out := &sync.Outcome{
		Key:    d.key,
		RunID:  uuid.NewString(),
		Status: sync.StatusDisabled,
	}
	logger.InfoContext(ctx, "sync disabled by feature flag", "sync_key", d.key, "run_id", out.RunID)

	return out, nil
}

// base returns the runner config fields shared by every sync key.
func base[S any, T any](key string, cfg config.Runner, deps Deps) (sync.Config[S, T], error) {
	window, err := cfg.Window()
	if err != nil {
		return sync.Config[S, T]{}, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return sync.Config[S, T]{
		Clock:        deps.Clock,
		DryRun:       deps.DryRun,
		Enabled:      cfg.Enabled,
		Key:          key,
		Leaser:       deps.Leaser,
		Logger:       logger,
		MaxBatchSize: cfg.MaxBatchSize,
		Notifier:     deps.Notifier,
		StateStore:   deps.StateStore,
		Telemetry:    deps.Telemetry,
		Window:       window,
	}, nil
}

// required returns an error naming each dependency that is missing.
func required(deps map[string]bool) error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(deps)) {
		if !deps[name] {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	return errors.Join(errs...)
}

// runnable builds the runner for c, returning a nil interface on error.
func runnable[S any, T any](c sync.Config[S, T]) (Runnable, error) {
	r, err := sync.New(c)
	if err != nil {
		return nil, err
	}
	return r, nil
}
