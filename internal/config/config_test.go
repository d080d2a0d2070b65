package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/peteski22/prnbridge/internal/remote"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Cannot use t.Parallel() with t.Setenv().
	tests := map[string]struct {
		envVars      map[string]string
		errFragments []string
		validate     func(t *testing.T, s *Settings)
		wantErr      bool
	}{
		"defaults": {
			envVars: map[string]string{},
			validate: func(t *testing.T, s *Settings) {
				t.Helper()
				require.Equal(t, 30*time.Second, s.RemoteTimeout)
				require.Equal(t, StateSSM, s.State.Backend)
				require.Equal(t, "/prnbridge/watermarks", s.State.SSMPrefix)
				require.True(t, s.Runners.UpdatePrns.Enabled)
				require.Equal(t, "2024-01-01", s.Runners.FetchNpwdIssuedPrns.DefaultStartDate)
				require.Zero(t, s.Runners.UpdatePrns.MaxBatchSize)
				require.False(t, s.Email.Enabled())
				require.False(t, s.Backend.Authenticated())
			},
		},
		"per-runner settings": {
			envVars: map[string]string{
				"UPDATE_PRNS_ENABLED":                           "false",
				"UPDATE_PRNS_MAX_BATCH_SIZE":                    "500",
				"UPDATE_PRNS_POLLING_LAG_SECONDS":               "20",
				"UPDATE_WASTE_ORGANISATIONS_DEFAULT_START_DATE": "2023-06-01",
			},
			validate: func(t *testing.T, s *Settings) {
				t.Helper()
				require.False(t, s.Runners.UpdatePrns.Enabled)
				require.Equal(t, 500, s.Runners.UpdatePrns.MaxBatchSize)

				window, err := s.Runners.UpdatePrns.Window()
				require.NoError(t, err)
				require.Equal(t, 20*time.Second, window.PollingLag)

				window, err = s.Runners.UpdateWasteOrganisations.Window()
				require.NoError(t, err)
				require.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), window.DefaultStart)
			},
		},
		"apis, email and queue": {
			envVars: map[string]string{
				"BACKEND_BASE_URL":             "https://backend.example.test",
				"BACKEND_CLIENT_ID":            " backend-client ",
				"BACKEND_CLIENT_SECRET_ARN":    "arn:aws:secretsmanager:eu-west-2:123456789012:secret:backend",
				"BACKEND_TOKEN_URL":            "https://login.example.test/token",
				"EMAIL_FROM":                   "prn-sync@example.test",
				"EMAIL_OPERATOR_RECIPIENTS":    "ops@example.test, , oncall@example.test",
				"QUEUE_ISSUED_PRNS_URL":        "https://sqs.example.test/issued",
				"RREPW_RATE_LIMIT":             "5",
				"WASTE_ORGANISATIONS_BASE_URL": "https://orgs.example.test",
			},
			validate: func(t *testing.T, s *Settings) {
				t.Helper()
				require.Equal(t, "backend-client", s.Backend.ClientID)
				require.True(t, s.Backend.Authenticated())
				require.True(t, s.Email.Enabled())
				require.Equal(t, []string{"ops@example.test", "oncall@example.test"}, s.Email.OperatorRecipients)
				require.Equal(t, "https://sqs.example.test/issued", s.Queue.IssuedPrnsURL)
				require.InDelta(t, 5.0, s.Rrepw.RateLimit, 0.001)
				require.Equal(t, "https://orgs.example.test", s.WasteOrganisations.BaseURL)
			},
		},
		"dynamodb state": {
			envVars: map[string]string{
				"STATE_BACKEND":        "DynamoDB",
				"STATE_DYNAMODB_TABLE": "prn-sync-state",
				"STATE_LEASE_TABLE":    "prn-sync-state",
			},
			validate: func(t *testing.T, s *Settings) {
				t.Helper()
				require.Equal(t, StateDynamoDB, s.State.Backend)
				require.Equal(t, "prn-sync-state", s.State.LeaseTable)
			},
		},
		"invalid values": {
			envVars: map[string]string{
				"BACKEND_CLIENT_ID":                     "backend-client",
				"EMAIL_FROM":                            "prn-sync@example.test",
				"STATE_BACKEND":                         "blob",
				"UPDATE_PRNS_DEFAULT_START_DATE":        "2024/01/01",
				"UPDATED_PRODUCERS_MAX_BATCH_SIZE":      "-1",
				"UPDATE_RREPW_PRNS_POLLING_LAG_SECONDS": "-5",
			},
			wantErr: true,
			errFragments: []string{
				"BACKEND_TOKEN_URL is required",
				"one of BACKEND_CLIENT_SECRET or BACKEND_CLIENT_SECRET_ARN is required",
				"EMAIL_OPERATOR_RECIPIENTS is required",
				"one of STATE_BLOB_CONNECTION_STRING or STATE_BLOB_ACCOUNT_NAME is required",
				"UPDATE_PRNS_DEFAULT_START_DATE",
				"UPDATED_PRODUCERS_MAX_BATCH_SIZE must not be negative",
				"UPDATE_RREPW_PRNS_POLLING_LAG_SECONDS must not be negative",
			},
		},
		"unknown state backend": {
			envVars:      map[string]string{"STATE_BACKEND": "redis"},
			wantErr:      true,
			errFragments: []string{`STATE_BACKEND must be one of blob, dynamodb, sqlite, ssm, got "redis"`},
		},
		"unparseable value": {
			envVars:      map[string]string{"REMOTE_TIMEOUT": "soon"},
			wantErr:      true,
			errFragments: []string{"parsing environment"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range tc.envVars {
				t.Setenv(k, v)
			}

			settings, err := Load()

			if tc.wantErr {
				require.Error(t, err)
				for _, fragment := range tc.errFragments {
					require.Contains(t, err.Error(), fragment)
				}
				require.Nil(t, settings)
			} else {
				require.NoError(t, err)
				tc.validate(t, settings)
			}
		})
	}
}

func TestParseIsolatedEnvironment(t *testing.T) {
	t.Parallel()

	settings, err := parse(env.Options{Environment: map[string]string{
		"STATE_BACKEND":     "sqlite",
		"STATE_SQLITE_PATH": "/tmp/watermarks.db",
	}})

	require.NoError(t, err)
	require.Equal(t, StateSQLite, settings.State.Backend)
	require.Equal(t, "/tmp/watermarks.db", settings.State.SQLitePath)
}

// mockResolver implements SecretResolver for testing.
type mockResolver struct {
	err     error
	secrets map[string]string
}

// Resolve returns value, or the secret for arn.
func (m *mockResolver) Resolve(_ context.Context, value string, arn string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if value != "" || arn == "" {
		return value, nil
	}
	return m.secrets[arn], nil
}

func TestSettings_ResolveSecrets(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		resolver    *mockResolver
		wantBackend string
		wantErr     bool
		wantRrepw   string
	}{
		"resolves by ARN and keeps direct values": {
			resolver: &mockResolver{secrets: map[string]string{
				"arn:backend": "backend-secret",
			}},
			wantBackend: "backend-secret",
			wantRrepw:   "direct-secret",
		},
		"resolver error": {
			resolver: &mockResolver{err: errors.New("access denied")},
			wantErr:  true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			settings := &Settings{
				Backend: API{ClientID: "backend", ClientSecretARN: "arn:backend"},
				Npwd:    API{BaseURL: "https://npwd.example.test"},
				Rrepw:   API{ClientID: "rrepw", ClientSecret: "direct-secret"},
			}

			err := settings.ResolveSecrets(context.Background(), tc.resolver)

			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "access denied")
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantBackend, settings.Backend.ClientSecret)
			require.Equal(t, tc.wantRrepw, settings.Rrepw.ClientSecret)
			require.Empty(t, settings.Npwd.ClientSecret)
		})
	}
}

func TestAPI_ClientOptions(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		api      API
		wantErr  string
		wantOpts int
	}{
		"unauthenticated": {
			api:      API{BaseURL: "https://api.example.test"},
			wantOpts: 2,
		},
		"client credentials with rate limit": {
			api: API{
				BaseURL:      "https://api.example.test",
				ClientID:     "client",
				ClientSecret: "secret",
				RateLimit:    5,
				Scope:        "api://npwd/.default offline",
				TokenURL:     "https://login.example.test/token",
			},
			wantOpts: 4,
		},
		"client credentials without token URL": {
			api:      API{BaseURL: "https://api.example.test", ClientID: "client", ClientSecret: "secret"},
			wantErr:  "token URL is required",
			wantOpts: 3,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			opts := tc.api.ClientOptions(30 * time.Second)
			require.Len(t, opts, tc.wantOpts)

			_, err := remote.NewClient(tc.api.BaseURL, opts...)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
