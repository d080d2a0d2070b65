// Package main provides the SQS-triggered Lambda handler that ingests issued NPWD PRNs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/peteski22/prnbridge/internal/backend"
	"github.com/peteski22/prnbridge/internal/config"
	"github.com/peteski22/prnbridge/internal/ingest"
	"github.com/peteski22/prnbridge/internal/notify"
	"github.com/peteski22/prnbridge/internal/queue"
	"github.com/peteski22/prnbridge/internal/storage"
	"github.com/peteski22/prnbridge/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	processor, err := newProcessor(context.Background(), logger)
	if err != nil {
		logger.Error("failed to initialise", "error", err)
		os.Exit(1)
	}

	lambda.Start(processor.Handle)
}

// newProcessor builds the processor from environment settings.
func newProcessor(ctx context.Context, logger *slog.Logger) (*ingest.Processor, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	if settings.Queue.ErrorURL == "" {
		return nil, errors.New("QUEUE_ERROR_URL is required")
	}
	if settings.Backend.BaseURL == "" {
		return nil, errors.New("BACKEND_BASE_URL is required")
	}

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

	backendClient, err := backend.NewClient(settings.Backend.BaseURL, settings.Backend.ClientOptions(settings.RemoteTimeout)...)
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}

	errorQueue, err := queue.NewErrorQueue(sqs.NewFromConfig(awsCfg), settings.Queue.ErrorURL)
	if err != nil {
		return nil, fmt.Errorf("creating error queue: %w", err)
	}

	var mailer ingest.Mailer = notify.NewLogNotifier(logger)
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
		mailer = emailer
	}

	return ingest.New(ingest.Config{
		Backend:    backendClient,
		ErrorQueue: errorQueue,
		Logger:     logger,
		Mailer:     mailer,
		Telemetry:  telemetry.NewLogRecorder(logger),
		Templates: ingest.Templates{
			Cancelled: settings.Email.CancelledTemplate,
			Issued:    settings.Email.IssuedTemplate,
		},
	})
}
