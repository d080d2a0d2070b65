// Package ingest processes queued issued PRNs: it validates, saves and notifies,
// and dead-letters what it cannot process.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/peteski22/prnbridge/internal/backend"
	"github.com/peteski22/prnbridge/internal/npwd"
	"github.com/peteski22/prnbridge/internal/queue"
)

// EventValidationFailed is the telemetry event recorded for an invalid PRN.
const EventValidationFailed = "PrnValidationFailed"

// evidenceNoPattern salvages the PRN number from a body that does not decode.
var evidenceNoPattern = regexp.MustCompile(`"EvidenceNo"\s*:\s*"([^"]+)"`)

// Backend saves PRNs and looks up who to notify about them.
type Backend interface {
	// ProducerEmails returns the people to notify for an organisation.
	ProducerEmails(ctx context.Context, organisationID uuid.UUID) ([]backend.ProducerEmail, error)

	// SavePrn creates or updates a PRN.
	SavePrn(ctx context.Context, req *backend.SavePrnRequest) error
}

// ErrorQueue dead-letters messages that could not be processed.
type ErrorQueue interface {
	// Send dead-letters body tagged with the PRN number and the reason.
	Send(ctx context.Context, body string, evidenceNo string, reason string) error
}

// Mailer sends producer emails and the operator digest.
type Mailer interface {
	// SendDigestEmail emails the validation digest to operators.
	SendDigestEmail(ctx context.Context, csv string, count int) error

	// SendTemplated sends a templated email.
	SendTemplated(ctx context.Context, to []string, template string, data map[string]string) error
}

// Telemetry records custom events.
type Telemetry interface {
	// Event records a named event with its properties.
	Event(ctx context.Context, name string, props map[string]string)
}

// Templates names the producer email templates.
type Templates struct {
	// Cancelled is sent when a PRN is cancelled.
	Cancelled string `yaml:"cancelled"`

	// Issued is sent for every other status.
	Issued string `yaml:"issued"`
}

// Config holds the configuration for creating a Processor.
type Config struct {
	// Backend saves PRNs.
	Backend Backend

	// ErrorQueue receives messages that could not be processed.
	ErrorQueue ErrorQueue

	// Logger is the structured logger for the processor.
	Logger *slog.Logger

	// Mailer sends producer emails and the digest.
	Mailer Mailer

	// Telemetry records validation failures. Optional.
	Telemetry Telemetry

	// Templates names the producer email templates.
	Templates Templates
}

// validate checks that all required Config fields are set.
func (c *Config) validate() error {
	var errs []error
	if c.Backend == nil {
		errs = append(errs, errors.New("backend is required"))
	}
	if c.ErrorQueue == nil {
		errs = append(errs, errors.New("error queue is required"))
	}
	if c.Mailer == nil {
		errs = append(errs, errors.New("mailer is required"))
	}
	if c.Templates.Cancelled == "" || c.Templates.Issued == "" {
		errs = append(errs, errors.New("cancelled and issued email templates are required"))
	}
	return errors.Join(errs...)
}

// Processor handles batches of issued-PRN queue messages.
type Processor struct {
	backend    Backend
	errorQueue ErrorQueue
	logger     *slog.Logger
	mailer     Mailer
	telemetry  Telemetry
	templates  Templates
	validator  *Validator
}

// New creates a new Processor.
func New(cfg Config) (*Processor, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		backend:    cfg.Backend,
		errorQueue: cfg.ErrorQueue,
		logger:     logger,
		mailer:     cfg.Mailer,
		telemetry:  cfg.Telemetry,
		templates:  cfg.Templates,
		validator:  NewValidator(),
	}, nil
}

// Result summarises one batch.
type Result struct {
	// DeadLettered is the number of messages sent to the error queue.
	DeadLettered int

	// Invalid holds the validation failures reported in the digest.
	Invalid []ValidationFailure

	// Retried is the number of messages reported back for redelivery.
	Retried int

	// Saved is the number of PRNs saved to the backend.
	Saved int
}

// Handle processes an SQS batch. Messages that cannot be decoded are reported
// as batch item failures so that SQS redelivers them; every other message completes.
func (p *Processor) Handle(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	resp, _ := p.Process(ctx, event)
	return resp, nil
}

// Process handles an SQS batch and returns its Result along with the response.
func (p *Processor) Process(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, Result) {
	var (
		resp   events.SQSEventResponse
		result Result
	)

	for _, msg := range event.Records {
		logger := p.logger.With("message_id", msg.MessageId)

		prn, err := decode(msg.Body)
		if err != nil {
			evidenceNo := salvageEvidenceNo(msg)
			logger.ErrorContext(ctx, "decoding issued PRN message", "evidence_no", evidenceNo, "error", err)
			p.deadLetter(ctx, logger, &result, msg.Body, evidenceNo, fmt.Sprintf("decoding message: %v", err))
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: msg.MessageId,
			})
			result.Retried++
			continue
		}

		logger = logger.With("evidence_no", prn.EvidenceNo)

		if failure, ok := p.check(ctx, logger, prn); !ok {
			p.deadLetter(ctx, logger, &result, msg.Body, prn.EvidenceNo, strings.Join(failure.Errors, validationSeparator))
			result.Invalid = append(result.Invalid, failure)
			continue
		}

		req, err := prn.ToSaveRequest()
		if err == nil {
			err = p.backend.SavePrn(ctx, req)
		}
		if err != nil {
			logger.ErrorContext(ctx, "saving issued PRN", "error", err)
			p.deadLetter(ctx, logger, &result, msg.Body, prn.EvidenceNo, fmt.Sprintf("saving PRN: %v", err))
			continue
		}
		result.Saved++
		logger.InfoContext(ctx, "saved issued PRN", "status", req.PrnStatus)

		p.emailProducers(ctx, logger, req)
	}

	p.sendDigest(ctx, result.Invalid)

	p.logger.InfoContext(ctx, "processed issued PRN batch",
		"messages", len(event.Records),
		"saved", result.Saved,
		"invalid", len(result.Invalid),
		"dead_lettered", result.DeadLettered,
		"retried", result.Retried)

	return resp, result
}

// check validates prn, recording telemetry for invalid records.
func (p *Processor) check(ctx context.Context, logger *slog.Logger, prn *npwd.Prn) (ValidationFailure, bool) {
	messages := p.validator.Validate(prn)
	if len(messages) == 0 {
		return ValidationFailure{}, true
	}

	joined := strings.Join(messages, validationSeparator)
	logger.WarnContext(ctx, "issued PRN failed validation", "errors", joined)

	if p.telemetry != nil {
		p.telemetry.Event(ctx, EventValidationFailed, map[string]string{
			"errors":      joined,
			"evidence_no": prn.EvidenceNo,
			"issued_to":   prn.IssuedToOrgName,
			"status":      prn.EvidenceStatusCode,
		})
	}

	return ValidationFailure{
		Errors:     messages,
		EvidenceNo: prn.EvidenceNo,
		IssuedTo:   prn.IssuedToOrgName,
		Status:     prn.EvidenceStatusCode,
		StatusDate: prn.StatusDate,
	}, false
}

// deadLetter sends body to the error queue, logging failures.
func (p *Processor) deadLetter(
	ctx context.Context,
	logger *slog.Logger,
	result *Result,
	body string,
	evidenceNo string,
	reason string,
) {
	if err := p.errorQueue.Send(ctx, body, evidenceNo, reason); err != nil {
		logger.ErrorContext(ctx, "sending message to error queue", "error", err)
		return
	}
	result.DeadLettered++
}

// emailProducers notifies the receiving organisation's people. Failures are logged only.
func (p *Processor) emailProducers(ctx context.Context, logger *slog.Logger, req *backend.SavePrnRequest) {
	people, err := p.backend.ProducerEmails(ctx, req.OrganisationID)
	if err != nil {
		logger.WarnContext(ctx, "looking up producer emails", "error", err)
		return
	}

	template := p.templates.Issued
	if req.Cancelled() {
		template = p.templates.Cancelled
	}

	for _, person := range people {
		if person.Email == "" {
			continue
		}

		data := map[string]string{
			"firstName":        person.FirstName,
			"lastName":         person.LastName,
			"material":         req.MaterialName,
			"obligationYear":   req.ObligationYear,
			"organisationName": req.OrganisationName,
			"prnNumber":        req.PrnNumber,
			"tonnage":          strconv.Itoa(req.TonnageValue),
		}

		if err := p.mailer.SendTemplated(ctx, []string{person.Email}, template, data); err != nil {
			logger.WarnContext(ctx, "sending producer email", "template", template, "error", err)
		}
	}
}

// sendDigest emails operators the batch's validation failures, if any.
func (p *Processor) sendDigest(ctx context.Context, failures []ValidationFailure) {
	if len(failures) == 0 {
		return
	}

	csv, err := digestCSV(failures)
	if err != nil {
		p.logger.ErrorContext(ctx, "building validation digest", "error", err)
		return
	}

	if err := p.mailer.SendDigestEmail(ctx, csv, len(failures)); err != nil {
		p.logger.ErrorContext(ctx, "sending validation digest", "count", len(failures), "error", err)
	}
}

// decode parses a message body as an NPWD PRN.
func decode(body string) (*npwd.Prn, error) {
	var prn npwd.Prn
	if err := json.Unmarshal([]byte(body), &prn); err != nil {
		return nil, err
	}
	return &prn, nil
}

// salvageEvidenceNo recovers the PRN number of an undecodable message from its
// attributes or, failing that, from the raw body.
func salvageEvidenceNo(msg events.SQSMessage) string {
	if attr, ok := msg.MessageAttributes[queue.AttrEvidenceNo]; ok && attr.StringValue != nil {
		return *attr.StringValue
	}

	if m := evidenceNoPattern.FindStringSubmatch(msg.Body); m != nil {
		return m[1]
	}

	return ""
}
