package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerAPI defines the Secrets Manager operations used by the secret store.
type SecretsManagerAPI interface {
	// GetSecretValue retrieves a secret value.
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretStore reads API client secrets from AWS Secrets Manager.
type SecretStore struct {
	// client is the Secrets Manager API client.
	client SecretsManagerAPI
}

// Secret returns the string value of the secret identified by arn.
func (s *SecretStore) Secret(ctx context.Context, arn string) (string, error) {
	if arn == "" {
		return "", errors.New("secret ARN is required")
	}

	output, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(arn),
	})
	if err != nil {
		return "", fmt.Errorf("getting secret from Secrets Manager: %w", err)
	}

	if output.SecretString == nil {
		return "", errors.New("secret has no string value")
	}

	return *output.SecretString, nil
}

// Resolve returns value when it is set, otherwise the secret stored at arn.
// An empty value with no ARN resolves to an empty string.
func (s *SecretStore) Resolve(ctx context.Context, value string, arn string) (string, error) {
	if value != "" || arn == "" {
		return value, nil
	}
	return s.Secret(ctx, arn)
}

// NewSecretStore creates a new Secrets Manager-backed secret store.
func NewSecretStore(client SecretsManagerAPI) (*SecretStore, error) {
	if client == nil {
		return nil, errors.New("secrets manager client is required")
	}

	return &SecretStore{client: client}, nil
}
