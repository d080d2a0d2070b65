// Package notify sends operator and producer emails.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESAPI defines the SES v2 operations used by the emailer.
type SESAPI interface {
	// SendEmail sends a simple or templated email.
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Config holds the configuration for creating an Emailer.
type Config struct {
	// Client is the SES v2 API client.
	Client SESAPI

	// From is the sender address.
	From string

	// Logger is the structured logger for the emailer.
	Logger *slog.Logger

	// OperatorRecipients receive error and digest emails.
	OperatorRecipients []string
}

// validate checks that all required Config fields are set.
func (c *Config) validate() error {
	var errs []error
	if c.Client == nil {
		errs = append(errs, errors.New("ses client is required"))
	}
	if strings.TrimSpace(c.From) == "" {
		errs = append(errs, errors.New("from address is required"))
	}
	if len(c.OperatorRecipients) == 0 {
		errs = append(errs, errors.New("at least one operator recipient is required"))
	}
	return errors.Join(errs...)
}

// Emailer sends email through Amazon SES v2.
type Emailer struct {
	client    SESAPI
	from      string
	logger    *slog.Logger
	operators []string
}

// New creates a new Emailer.
func New(cfg Config) (*Emailer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Emailer{
		client:    cfg.Client,
		from:      cfg.From,
		logger:    logger,
		operators: cfg.OperatorRecipients,
	}, nil
}

// SendErrorEmail emails operators about a failed sync.
func (e *Emailer) SendErrorEmail(ctx context.Context, subject string, body string) error {
	return e.sendSimple(ctx, e.operators, subject, body)
}

// SendDigestEmail emails operators the CSV digest of PRNs that failed validation.
func (e *Emailer) SendDigestEmail(ctx context.Context, csv string, count int) error {
	if count == 0 {
		return nil
	}

	subject := fmt.Sprintf("%d issued PRNs failed validation", count)
	body := fmt.Sprintf("The following %d PRNs failed validation and were sent to the error queue.\n\n%s", count, csv)

	return e.sendSimple(ctx, e.operators, subject, body)
}

// SendTemplated sends the named SES template to the given recipients.
func (e *Emailer) SendTemplated(ctx context.Context, to []string, template string, data map[string]string) error {
	if len(to) == 0 {
		return errors.New("at least one recipient is required")
	}
	if template == "" {
		return errors.New("template name is required")
	}

	templateData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling template data: %w", err)
	}

	_, err = e.client.SendEmail(ctx, &sesv2.SendEmailInput{
		Content: &types.EmailContent{
			Template: &types.Template{
				TemplateData: aws.String(string(templateData)),
				TemplateName: aws.String(template),
			},
		},
		Destination:      &types.Destination{ToAddresses: to},
		FromEmailAddress: aws.String(e.from),
	})
	if err != nil {
		return fmt.Errorf("sending %s email: %w", template, err)
	}

	e.logger.DebugContext(ctx, "sent templated email", "template", template, "recipients", len(to))

	return nil
}

// sendSimple sends a plain-text email.
func (e *Emailer) sendSimple(ctx context.Context, to []string, subject string, body string) error {
	_, err := e.client.SendEmail(ctx, &sesv2.SendEmailInput{
		Content: &types.EmailContent{
			Simple: &types.Message{
				Body: &types.Body{
					Text: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(body)},
				},
				Subject: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(subject)},
			},
		},
		Destination:      &types.Destination{ToAddresses: to},
		FromEmailAddress: aws.String(e.from),
	})
	if err != nil {
		return fmt.Errorf("sending email %q: %w", subject, err)
	}

	return nil
}
