package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/peteski22/prnbridge/internal/backend"
	"github.com/peteski22/prnbridge/internal/config"
	"github.com/peteski22/prnbridge/internal/notify"
	"github.com/peteski22/prnbridge/internal/npwd"
	"github.com/peteski22/prnbridge/internal/queue"
	"github.com/peteski22/prnbridge/internal/rrepw"
	"github.com/peteski22/prnbridge/internal/runners"
	"github.com/peteski22/prnbridge/internal/storage"
	"github.com/peteski22/prnbridge/internal/sync"
	"github.com/peteski22/prnbridge/internal/telemetry"
	"github.com/peteski22/prnbridge/internal/wasteorgs"
)

// runOptions holds per-invocation overrides.
type runOptions struct {
	// dryRun logs pushes instead of sending them.
	dryRun bool

	// since replaces every stored watermark when set. Nothing is persisted.
	since *time.Time
}

// app holds the runner dependencies built from settings.
type app struct {
	closers  []func() error
	deps     runners.Deps
	settings *config.Settings
}

// Close releases resources held by the app.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Run builds and runs the runner for key.
func (a *app) Run(ctx context.Context, key string) (*sync.Outcome, error) {
	runner, err := runners.New(key, a.settings.Runners, a.deps)
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx)
}

// newApp builds the clients and stores described by settings.
func newApp(ctx context.Context, settings *config.Settings, opts runOptions, logger *slog.Logger) (*app, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	secrets, err := storage.NewSecretStore(secretsmanager.NewFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}
	if err := settings.ResolveSecrets(ctx, secrets); err != nil {
		return nil, err
	}

	a := &app{
		deps: runners.Deps{
			DryRun:    opts.dryRun,
			Logger:    logger,
			Telemetry: telemetry.NewLogRecorder(logger),
		},
		settings: settings,
	}

	if err := a.connectAPIs(settings); err != nil {
		return nil, err
	}

	if settings.Queue.IssuedPrnsURL != "" {
		publisher, err := queue.NewPublisher(sqs.NewFromConfig(awsCfg), settings.Queue.IssuedPrnsURL, logger)
		if err != nil {
			return nil, fmt.Errorf("creating issued PRN queue: %w", err)
		}
		a.deps.IssuedPrnQueue = publisher
	}

	if settings.Email.Enabled() {
		emailer, err := notify.New(notify.Config{
			Client:             sesv2.NewFromConfig(awsCfg),
			From:               settings.Email.From,
			Logger:             logger,
			OperatorRecipients: settings.Email.OperatorRecipients,
		})
		if err != nil {
			return nil, fmt.Errorf("creating emailer: %w", err)
		}
		a.deps.Notifier = emailer
	} else {
		a.deps.Notifier = notify.NewLogNotifier(logger)
	}

	if settings.State.LeaseTable != "" {
		leaser, err := storage.NewDynamoDBLeaser(dynamodb.NewFromConfig(awsCfg), settings.State.LeaseTable)
		if err != nil {
			return nil, fmt.Errorf("creating lease store: %w", err)
		}
		a.deps.Leaser = leaser
	}

	if opts.since != nil {
		a.deps.StateStore = storage.NewNoopStore(*opts.since)
		return a, nil
	}

	if err := a.openStateStore(awsCfg, settings.State); err != nil {
		_ = a.Close()
		return nil, err
	}

	return a, nil
}

// connectAPIs creates a client for each remote API with a base URL.
// APIs left unconfigured stay nil and fail only the runners that need them.
func (a *app) connectAPIs(settings *config.Settings) error {
	if api := settings.Backend; api.BaseURL != "" {
		client, err := backend.NewClient(api.BaseURL, api.ClientOptions(settings.RemoteTimeout)...)
		if err != nil {
			return fmt.Errorf("creating backend client: %w", err)
		}
		a.deps.Backend = client
	}

	if api := settings.Npwd; api.BaseURL != "" {
		client, err := npwd.NewClient(api.BaseURL, api.ClientOptions(settings.RemoteTimeout)...)
		if err != nil {
			return fmt.Errorf("creating npwd client: %w", err)
		}
		a.deps.Npwd = client
	}

	if api := settings.Rrepw; api.BaseURL != "" {
		client, err := rrepw.NewClient(api.BaseURL, api.ClientOptions(settings.RemoteTimeout)...)
		if err != nil {
			return fmt.Errorf("creating rrepw client: %w", err)
		}
		a.deps.Rrepw = client
	}

	if api := settings.WasteOrganisations; api.BaseURL != "" {
		client, err := wasteorgs.NewClient(api.BaseURL, api.ClientOptions(settings.RemoteTimeout)...)
		if err != nil {
			return fmt.Errorf("creating waste organisations client: %w", err)
		}
		a.deps.WasteOrganisations = client
	}

	return nil
}

// openStateStore opens the watermark store selected by state.
func (a *app) openStateStore(awsCfg aws.Config, state config.State) error {
	switch state.Backend {
	case config.StateSSM:
		store, err := storage.NewSSMStore(ssm.NewFromConfig(awsCfg), state.SSMPrefix)
		if err != nil {
			return fmt.Errorf("creating SSM state store: %w", err)
		}
		a.deps.StateStore = store
	case config.StateDynamoDB:
		store, err := storage.NewDynamoDBStore(dynamodb.NewFromConfig(awsCfg), state.DynamoDBTable)
		if err != nil {
			return fmt.Errorf("creating DynamoDB state store: %w", err)
		}
		a.deps.StateStore = store
	case config.StateBlob:
		client, err := storage.NewBlobClient(storage.BlobConfig{
			AccountName:      state.BlobAccountName,
			ConnectionString: state.BlobConnectionString,
		})
		if err != nil {
			return fmt.Errorf("creating blob client: %w", err)
		}
		store, err := storage.NewBlobStore(client, state.BlobContainer)
		if err != nil {
			return fmt.Errorf("creating blob state store: %w", err)
		}
		a.deps.StateStore = store
	case config.StateSQLite:
		store, err := storage.NewSQLiteStore(state.SQLitePath)
		if err != nil {
			return fmt.Errorf("creating SQLite state store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.deps.StateStore = store
	default:
		return fmt.Errorf("unsupported state backend %q", state.Backend)
	}

	return nil
}
