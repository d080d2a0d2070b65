// Package queue publishes issued PRNs to SQS and routes failed messages to the error queue.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/peteski22/prnbridge/internal/npwd"
	"github.com/peteski22/prnbridge/internal/remote"
)

const (
	// AttrEvidenceNo is the message attribute carrying the PRN number.
	AttrEvidenceNo = "EvidenceNo"

	// AttrReason is the message attribute carrying why a message was dead-lettered.
	AttrReason = "Reason"

	// maxBatchBytes is the SQS limit on the total payload of one batch.
	maxBatchBytes = 256 * 1024

	// maxBatchEntries is the SQS limit on the number of entries in one batch.
	maxBatchEntries = 10
)

// SQSAPI defines the SQS operations used by the publishers.
type SQSAPI interface {
	// SendMessage sends a single message.
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)

	// SendMessageBatch sends up to ten messages.
	SendMessageBatch(
		ctx context.Context,
		params *sqs.SendMessageBatchInput,
		optFns ...func(*sqs.Options),
	) (*sqs.SendMessageBatchOutput, error)
}

// Publisher sends issued PRNs to the issued-PRN queue.
type Publisher struct {
	client   SQSAPI
	logger   *slog.Logger
	queueURL string
}

// NewPublisher creates a new Publisher. A nil logger uses slog.Default.
func NewPublisher(client SQSAPI, queueURL string, logger *slog.Logger) (*Publisher, error) {
	var errs []error
	if client == nil {
		errs = append(errs, errors.New("sqs client is required"))
	}
	if queueURL == "" {
		errs = append(errs, errors.New("queue URL is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		client:   client,
		logger:   logger,
		queueURL: queueURL,
	}, nil
}

// Enqueue sends one message per PRN, batched for transport.
//
// A message that is too large to send, or that SQS reports as failed, is logged
// and dropped; it does not fail the call. A failed batch call is returned marked
// transient so that the caller retries the window.
func (p *Publisher) Enqueue(ctx context.Context, prns []npwd.Prn) error {
	var (
		batch     []types.SendMessageBatchRequestEntry
		batchSize int
		enqueued  int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		sent, err := p.sendBatch(ctx, batch)
		if err != nil {
			return err
		}
		enqueued += sent
		batch, batchSize = nil, 0

		return nil
	}

	for i := range prns {
		entry, size, err := newEntry(strconv.Itoa(i), &prns[i])
		if err != nil {
			p.logger.WarnContext(ctx, "encoding PRN for queue, dropping", "evidence_no", prns[i].EvidenceNo, "error", err)
			continue
		}
		if size > maxBatchBytes {
			p.logger.WarnContext(ctx, "PRN message exceeds queue size limit, dropping",
				"evidence_no", prns[i].EvidenceNo,
				"size", size)
			continue
		}

		if len(batch) == maxBatchEntries || batchSize+size > maxBatchBytes {
			if err := flush(); err != nil {
				return err
			}
		}

		batch = append(batch, entry)
		batchSize += size
	}

	if err := flush(); err != nil {
		return err
	}

	if enqueued != len(prns) {
		p.logger.WarnContext(ctx, "not every PRN was enqueued", "attempted", len(prns), "enqueued", enqueued)
	}
	p.logger.InfoContext(ctx, "enqueued issued PRNs", "count", enqueued)

	return nil
}

// sendBatch sends one batch and returns how many entries SQS accepted.
func (p *Publisher) sendBatch(ctx context.Context, batch []types.SendMessageBatchRequestEntry) (int, error) {
	out, err := p.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		Entries:  batch,
		QueueUrl: aws.String(p.queueURL),
	})
	if err != nil {
		return 0, remote.MarkTransient(fmt.Errorf("sending message batch: %w", err))
	}

	evidenceNos := make(map[string]string, len(batch))
	for _, e := range batch {
		evidenceNos[aws.ToString(e.Id)] = aws.ToString(e.MessageAttributes[AttrEvidenceNo].StringValue)
	}

	for _, failed := range out.Failed {
		p.logger.WarnContext(ctx, "queue rejected PRN message",
			"evidence_no", evidenceNos[aws.ToString(failed.Id)],
			"code", aws.ToString(failed.Code),
			"message", aws.ToString(failed.Message))
	}

	return len(out.Successful), nil
}

// newEntry encodes prn as a batch entry and returns its size against the batch limit.
func newEntry(id string, prn *npwd.Prn) (types.SendMessageBatchRequestEntry, int, error) {
	body, err := json.Marshal(prn)
	if err != nil {
		return types.SendMessageBatchRequestEntry{}, 0, err
	}

	entry := types.SendMessageBatchRequestEntry{
		Id:          aws.String(id),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			AttrEvidenceNo: stringAttr(prn.EvidenceNo),
		},
	}

	size := len(body) + len(AttrEvidenceNo) + len("String") + len(prn.EvidenceNo)

	return entry, size, nil
}

// stringAttr returns a String message attribute. SQS rejects empty values, so
// an empty value is sent as "unknown".
func stringAttr(value string) types.MessageAttributeValue {
	if value == "" {
		value = "unknown"
	}
	return types.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(value),
	}
}
