package queue

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// ErrorQueue sends messages that could not be processed to the error queue
// for operators to inspect.
type ErrorQueue struct {
	client   SQSAPI
	queueURL string
}

// NewErrorQueue creates a new ErrorQueue.
func NewErrorQueue(client SQSAPI, queueURL string) (*ErrorQueue, error) {
	if client == nil {
		return nil, errors.New("sqs client is required")
	}
	if queueURL == "" {
		return nil, errors.New("error queue URL is required")
	}

	return &ErrorQueue{
		client:   client,
		queueURL: queueURL,
	}, nil
}

// Send dead-letters body tagged with the PRN number and the reason it failed.
func (q *ErrorQueue) Send(ctx context.Context, body string, evidenceNo string, reason string) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		MessageAttributes: map[string]types.MessageAttributeValue{
			AttrEvidenceNo: stringAttr(evidenceNo),
			AttrReason:     stringAttr(truncateReason(reason)),
		},
		MessageBody: aws.String(body),
		QueueUrl:    aws.String(q.queueURL),
	})
	if err != nil {
		return fmt.Errorf("sending %s to error queue: %w", evidenceNo, err)
	}

	return nil
}

// truncateReason keeps the reason attribute well inside the message size limit.
func truncateReason(reason string) string {
	const maxReasonBytes = 4096
	if len(reason) <= maxReasonBytes {
		return reason
	}
	// Cut on a rune boundary: SQS rejects attributes that are not valid UTF-8.
	n := maxReasonBytes
	for n > 0 && !utf8.RuneStart(reason[n]) {
		n--
	}
	return reason[:n]
}
