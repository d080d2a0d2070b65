package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// SSMAPI defines the SSM operations used by the watermark store.
type SSMAPI interface {
	// GetParameter retrieves a parameter from SSM.
	GetParameter(
		ctx context.Context,
		params *ssm.GetParameterInput,
		optFns ...func(*ssm.Options),
	) (*ssm.GetParameterOutput, error)

	// PutParameter stores a parameter in SSM.
	PutParameter(
		ctx context.Context,
		params *ssm.PutParameterInput,
		optFns ...func(*ssm.Options),
	) (*ssm.PutParameterOutput, error)
}

// SSMStore keeps one watermark parameter per sync key in AWS SSM Parameter Store.
type SSMStore struct {
	// client is the SSM API client.
	client SSMAPI

	// prefix is the parameter path the sync keys are appended to.
	prefix string
}

// LastSyncTime returns the watermark for key, or the zero time if none is stored.
func (s *SSMStore) LastSyncTime(ctx context.Context, key string) (time.Time, error) {
	output, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(s.parameterName(key)),
	})
	if err != nil {
		// Parameter not found is not an error - return zero time.
		var notFoundErr *types.ParameterNotFound
		if errors.As(err, &notFoundErr) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("getting parameter from SSM: %w", err)
	}

	if output.Parameter == nil || output.Parameter.Value == nil {
		return time.Time{}, nil
	}

	return parseWatermark(*output.Parameter.Value)
}

// SetLastSyncTime stores the watermark for key.
func (s *SSMStore) SetLastSyncTime(ctx context.Context, key string, t time.Time) error {
	_, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(s.parameterName(key)),
		Overwrite: aws.Bool(true),
		Type:      types.ParameterTypeString,
		Value:     aws.String(formatWatermark(t)),
	})
	if err != nil {
		return fmt.Errorf("putting parameter to SSM: %w", err)
	}

	return nil
}

// parameterName returns the SSM parameter holding the watermark for key.
func (s *SSMStore) parameterName(key string) string {
	return s.prefix + "/" + key
}

// NewSSMStore creates a new SSM-backed watermark store rooted at prefix.
func NewSSMStore(client SSMAPI, prefix string) (*SSMStore, error) {
	if client == nil {
		return nil, errors.New("ssm client is required")
	}

	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return nil, errors.New("parameter prefix is required")
	}

	return &SSMStore{
		client: client,
		prefix: prefix,
	}, nil
}
