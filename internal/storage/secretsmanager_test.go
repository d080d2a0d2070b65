package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/require"
)

const testSecretARN = "arn:aws:secretsmanager:eu-west-2:123456789012:secret:npwd-client-secret"

type mockSecretsManagerAPI struct {
	getSecretValueFunc func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

func (m *mockSecretsManagerAPI) GetSecretValue(
	ctx context.Context,
	params *secretsmanager.GetSecretValueInput,
	optFns ...func(*secretsmanager.Options),
) (*secretsmanager.GetSecretValueOutput, error) {
	return m.getSecretValueFunc(ctx, params, optFns...)
}

func TestNewSecretStore(t *testing.T) {
	t.Parallel()

	store, err := NewSecretStore(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "secrets manager client is required")
	require.Nil(t, store)

	store, err = NewSecretStore(&mockSecretsManagerAPI{})
	require.NoError(t, err)
	require.NotNil(t, store)
}

func TestSecretStore_Secret(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		arn        string
		errMsg     string
		setupMock  func() *mockSecretsManagerAPI
		wantErr    bool
		wantSecret string
	}{
		"returns secret successfully": {
			arn: testSecretARN,
			setupMock: func() *mockSecretsManagerAPI {
				return &mockSecretsManagerAPI{
					getSecretValueFunc: func(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
						require.Equal(t, testSecretARN, *params.SecretId)
						return &secretsmanager.GetSecretValueOutput{
							SecretString: aws.String("s3cr3t"),
						}, nil
					},
				}
			},
			wantSecret: "s3cr3t",
		},
		"empty ARN": {
			arn: "",
			setupMock: func() *mockSecretsManagerAPI {
				return &mockSecretsManagerAPI{}
			},
			wantErr: true,
			errMsg:  "secret ARN is required",
		},
		"API error": {
			arn: testSecretARN,
			setupMock: func() *mockSecretsManagerAPI {
				return &mockSecretsManagerAPI{
					getSecretValueFunc: func(_ context.Context, _ *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
						return nil, errors.New("access denied")
					},
				}
			},
			wantErr: true,
			errMsg:  "getting secret from Secrets Manager",
		},
		"nil secret string": {
			arn: testSecretARN,
			setupMock: func() *mockSecretsManagerAPI {
				return &mockSecretsManagerAPI{
					getSecretValueFunc: func(_ context.Context, _ *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
						return &secretsmanager.GetSecretValueOutput{SecretString: nil}, nil
					},
				}
			},
			wantErr: true,
			errMsg:  "secret has no string value",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store, err := NewSecretStore(tc.setupMock())
			require.NoError(t, err)

			secret, err := store.Secret(context.Background(), tc.arn)

			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.wantSecret, secret)
			}
		})
	}
}

func TestSecretStore_Resolve(t *testing.T) {
	t.Parallel()

	calls := 0
	store, err := NewSecretStore(&mockSecretsManagerAPI{
		getSecretValueFunc: func(_ context.Context, _ *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			calls++
			return &secretsmanager.GetSecretValueOutput{SecretString: aws.String("from-arn")}, nil
		},
	})
	require.NoError(t, err)
	ctx := context.Background()

	got, err := store.Resolve(ctx, "inline", testSecretARN)
	require.NoError(t, err)
	require.Equal(t, "inline", got)
	require.Equal(t, 0, calls)

	got, err = store.Resolve(ctx, "", "")
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, 0, calls)

	got, err = store.Resolve(ctx, "", testSecretARN)
	require.NoError(t, err)
	require.Equal(t, "from-arn", got)
	require.Equal(t, 1, calls)
}
