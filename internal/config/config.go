// Package config provides configuration loading from environment variables
// and the local configuration file.
package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/peteski22/prnbridge/internal/delta"
	"github.com/peteski22/prnbridge/internal/remote"
)

const (
	// StateBlob keeps watermarks in Azure Blob Storage.
	StateBlob = "blob"

	// StateDynamoDB keeps watermarks in DynamoDB.
	StateDynamoDB = "dynamodb"

	// StateSQLite keeps watermarks in a local SQLite database.
	StateSQLite = "sqlite"

	// StateSSM keeps watermarks in SSM Parameter Store.
	StateSSM = "ssm"
)

// stateBackends are the supported watermark stores.
var stateBackends = []string{StateBlob, StateDynamoDB, StateSQLite, StateSSM}

// API holds the connection settings of one remote API.
type API struct {
	// BaseURL is the base URL for API requests.
	BaseURL string `env:"BASE_URL" yaml:"base_url"`

	// ClientID is the OAuth client identifier. Leave empty for unauthenticated APIs.
	ClientID string `env:"CLIENT_ID" yaml:"client_id"`

	// ClientSecret is the OAuth client secret.
	ClientSecret string `env:"CLIENT_SECRET" yaml:"client_secret"`

	// ClientSecretARN is the Secrets Manager ARN of the client secret, used when ClientSecret is empty.
	ClientSecretARN string `env:"CLIENT_SECRET_ARN" yaml:"client_secret_arn"`

	// RateLimit caps requests per second. Zero means no limit.
	RateLimit float64 `env:"RATE_LIMIT" yaml:"rate_limit"`

	// Scope is the OAuth scope requested.
	Scope string `env:"SCOPE" yaml:"scope"`

	// TokenURL is the OAuth token endpoint.
	TokenURL string `env:"TOKEN_URL" yaml:"token_url"`
}

// Authenticated reports whether the API uses OAuth client credentials.
func (a *API) Authenticated() bool {
	return a.ClientID != ""
}

// ClientOptions returns the remote client options for the API.
func (a *API) ClientOptions(timeout time.Duration) []remote.Option {
	opts := []remote.Option{
		remote.WithRetry(remote.DefaultRetryConfig()),
		remote.WithTimeout(timeout),
	}

	if a.Authenticated() {
		opts = append(opts, remote.WithClientCredentials(remote.Credentials{
			ClientID:     a.ClientID,
			ClientSecret: a.ClientSecret,
			Scopes:       strings.Fields(a.Scope),
			TokenURL:     a.TokenURL,
		}))
	}

	if a.RateLimit > 0 {
		opts = append(opts, remote.WithRateLimit(a.RateLimit, 1))
	}

	return opts
}

// validate checks the API settings, naming fields with prefix.
func (a *API) validate(prefix string) error {
	var errs []error
	if a.Authenticated() && a.TokenURL == "" {
		errs = append(errs, requiredError(prefix+"TOKEN_URL"))
	}
	if a.Authenticated() && a.ClientSecret == "" && a.ClientSecretARN == "" {
		errs = append(errs, fmt.Errorf("one of %sCLIENT_SECRET or %sCLIENT_SECRET_ARN is required", prefix, prefix))
	}
	if a.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("%sRATE_LIMIT must not be negative", prefix))
	}
	return errors.Join(errs...)
}

// Email holds operator and producer email settings.
type Email struct {
	// CancelledTemplate is the SES template sent to producers when a PRN is cancelled.
	CancelledTemplate string `env:"CANCELLED_TEMPLATE" envDefault:"prn-cancelled" yaml:"cancelled_template"`

	// From is the sender address. Leave empty to log emails instead of sending them.
	From string `env:"FROM" yaml:"from"`

	// IssuedTemplate is the SES template sent to producers when a PRN is issued.
	IssuedTemplate string `env:"ISSUED_TEMPLATE" envDefault:"prn-issued" yaml:"issued_template"`

	// OperatorRecipients receive error and digest emails.
	OperatorRecipients []string `env:"OPERATOR_RECIPIENTS" envSeparator:"," yaml:"operator_recipients"`
}

// Enabled reports whether emails are sent rather than logged.
func (e *Email) Enabled() bool {
	return e.From != ""
}

// Queue holds the issued-PRN queue settings.
type Queue struct {
	// ErrorURL is the URL of the error queue.
	ErrorURL string `env:"ERROR_URL" yaml:"error_url"`

	// IssuedPrnsURL is the URL of the issued-PRN queue.
	IssuedPrnsURL string `env:"ISSUED_PRNS_URL" yaml:"issued_prns_url"`
}

// Runner holds the settings of one sync runner.
type Runner struct {
	// DefaultStartDate (yyyy-MM-dd) is used when no watermark exists.
	DefaultStartDate string `env:"DEFAULT_START_DATE" envDefault:"2024-01-01" yaml:"default_start_date"`

	// Enabled is the runner's feature flag.
	Enabled bool `env:"ENABLED" envDefault:"true" yaml:"enabled"`

	// MaxBatchSize caps the records pushed per run. Zero means no cap.
	MaxBatchSize int `env:"MAX_BATCH_SIZE" yaml:"max_batch_size"`

	// PollingLagSeconds moves the window end back from now.
	PollingLagSeconds int `env:"POLLING_LAG_SECONDS" yaml:"polling_lag_seconds"`
}

// Window returns the runner's window settings.
func (r *Runner) Window() (delta.WindowConfig, error) {
	start, err := delta.ParseStartDate(r.DefaultStartDate)
	if err != nil {
		return delta.WindowConfig{}, err
	}

	return delta.WindowConfig{
		DefaultStart: start,
		PollingLag:   time.Duration(r.PollingLagSeconds) * time.Second,
	}, nil
}

// validate checks the runner settings, naming fields with prefix.
func (r *Runner) validate(prefix string) error {
	var errs []error
	if _, err := delta.ParseStartDate(r.DefaultStartDate); err != nil {
		errs = append(errs, fmt.Errorf("%sDEFAULT_START_DATE: %w", prefix, err))
	}
	if r.MaxBatchSize < 0 {
		errs = append(errs, fmt.Errorf("%sMAX_BATCH_SIZE must not be negative", prefix))
	}
	if r.PollingLagSeconds < 0 {
		errs = append(errs, fmt.Errorf("%sPOLLING_LAG_SECONDS must not be negative", prefix))
	}
	return errors.Join(errs...)
}

// Runners holds the settings of every sync runner, by sync key.
type Runners struct {
	FetchNpwdIssuedPrns      Runner `envPrefix:"FETCH_NPWD_ISSUED_PRNS_" yaml:"fetch_npwd_issued_prns"`
	FetchRrepwIssuedPrns     Runner `envPrefix:"FETCH_RREPW_ISSUED_PRNS_" yaml:"fetch_rrepw_issued_prns"`
	UpdatePrns               Runner `envPrefix:"UPDATE_PRNS_" yaml:"update_prns"`
	UpdateRrepwPrns          Runner `envPrefix:"UPDATE_RREPW_PRNS_" yaml:"update_rrepw_prns"`
	UpdateWasteOrganisations Runner `envPrefix:"UPDATE_WASTE_ORGANISATIONS_" yaml:"update_waste_organisations"`
	UpdatedProducers         Runner `envPrefix:"UPDATED_PRODUCERS_" yaml:"updated_producers"`
	UpdatedRrepwProducers    Runner `envPrefix:"UPDATED_RREPW_PRODUCERS_" yaml:"updated_rrepw_producers"`
}

// all returns each runner's settings with its environment prefix.
func (r *Runners) all() map[string]*Runner {
	return map[string]*Runner{
		"FETCH_NPWD_ISSUED_PRNS_":     &r.FetchNpwdIssuedPrns,
		"FETCH_RREPW_ISSUED_PRNS_":    &r.FetchRrepwIssuedPrns,
		"UPDATE_PRNS_":                &r.UpdatePrns,
		"UPDATE_RREPW_PRNS_":          &r.UpdateRrepwPrns,
		"UPDATE_WASTE_ORGANISATIONS_": &r.UpdateWasteOrganisations,
		"UPDATED_PRODUCERS_":          &r.UpdatedProducers,
		"UPDATED_RREPW_PRODUCERS_":    &r.UpdatedRrepwProducers,
	}
}

// State holds the watermark store and lease settings.
type State struct {
	// Backend selects the watermark store: ssm, dynamodb, blob or sqlite.
	Backend string `env:"BACKEND" envDefault:"ssm" yaml:"backend"`

	// BlobAccountName is the Azure storage account for the blob store.
	BlobAccountName string `env:"BLOB_ACCOUNT_NAME" yaml:"blob_account_name"`

	// BlobConnectionString connects to Azure storage, taking precedence over BlobAccountName.
	BlobConnectionString string `env:"BLOB_CONNECTION_STRING" yaml:"blob_connection_string"`

	// BlobContainer is the container holding watermark blobs.
	BlobContainer string `env:"BLOB_CONTAINER" envDefault:"prn-sync-watermarks" yaml:"blob_container"`

	// DynamoDBTable is the table holding watermarks for the dynamodb backend.
	DynamoDBTable string `env:"DYNAMODB_TABLE" yaml:"dynamodb_table"`

	// LeaseTable is the DynamoDB table holding sync-key leases. Leave empty to run without leases.
	LeaseTable string `env:"LEASE_TABLE" yaml:"lease_table"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `env:"SQLITE_PATH" yaml:"sqlite_path"`

	// SSMPrefix is the parameter path prefix for the ssm backend.
	SSMPrefix string `env:"SSM_PREFIX" envDefault:"/prnbridge/watermarks" yaml:"ssm_prefix"`
}

// validate checks the fields required by the selected backend.
func (s *State) validate() error {
	switch s.Backend {
	case StateBlob:
		if s.BlobConnectionString == "" && s.BlobAccountName == "" {
			return errors.New("one of STATE_BLOB_CONNECTION_STRING or STATE_BLOB_ACCOUNT_NAME is required")
		}
	case StateDynamoDB:
		if s.DynamoDBTable == "" {
			return requiredError("STATE_DYNAMODB_TABLE")
		}
	case StateSQLite:
		if s.SQLitePath == "" {
			return requiredError("STATE_SQLITE_PATH")
		}
	case StateSSM:
		if strings.Trim(s.SSMPrefix, "/ ") == "" {
			return requiredError("STATE_SSM_PREFIX")
		}
	default:
		return fmt.Errorf("STATE_BACKEND must be one of %s, got %q", strings.Join(stateBackends, ", "), s.Backend)
	}
	return nil
}

// Settings holds all configuration for the application.
type Settings struct {
	// Backend contains the common backend API settings.
	Backend API `envPrefix:"BACKEND_" yaml:"backend"`

	// Email contains operator and producer email settings.
	Email Email `envPrefix:"EMAIL_" yaml:"email"`

	// Npwd contains the NPWD API settings.
	Npwd API `envPrefix:"NPWD_" yaml:"npwd"`

	// Queue contains the issued-PRN queue settings.
	Queue Queue `envPrefix:"QUEUE_" yaml:"queue"`

	// RemoteTimeout is the HTTP timeout for every remote API.
	RemoteTimeout time.Duration `env:"REMOTE_TIMEOUT" envDefault:"30s" yaml:"remote_timeout"`

	// Rrepw contains the RREPW API settings.
	Rrepw API `envPrefix:"RREPW_" yaml:"rrepw"`

	// Runners contains the per-runner settings.
	Runners Runners `yaml:"runners"`

	// State contains the watermark store settings.
	State State `envPrefix:"STATE_" yaml:"state"`

	// WasteOrganisations contains the waste-organisations API settings.
	WasteOrganisations API `envPrefix:"WASTE_ORGANISATIONS_" yaml:"waste_organisations"`
}

func (s *Settings) validate() error {
	var errs []error

	for prefix, api := range map[string]*API{
		"BACKEND_":             &s.Backend,
		"NPWD_":                &s.Npwd,
		"RREPW_":               &s.Rrepw,
		"WASTE_ORGANISATIONS_": &s.WasteOrganisations,
	} {
		errs = append(errs, api.validate(prefix))
	}

	for prefix, runner := range s.Runners.all() {
		errs = append(errs, runner.validate(prefix))
	}

	if s.RemoteTimeout <= 0 {
		errs = append(errs, errors.New("REMOTE_TIMEOUT must be positive"))
	}
	if s.Email.Enabled() && len(s.Email.OperatorRecipients) == 0 {
		errs = append(errs, requiredError("EMAIL_OPERATOR_RECIPIENTS"))
	}

	errs = append(errs, s.State.validate())

	// Sorted for a stable message.
	errs = slices.DeleteFunc(errs, func(err error) bool { return err == nil })
	slices.SortFunc(errs, func(a, b error) int { return strings.Compare(a.Error(), b.Error()) })

	return errors.Join(errs...)
}

// SecretResolver resolves secrets that are given directly or by ARN.
type SecretResolver interface {
	// Resolve returns value when set, otherwise the secret stored at arn.
	Resolve(ctx context.Context, value string, arn string) (string, error)
}

// ResolveSecrets fills in API client secrets that were configured by ARN.
func (s *Settings) ResolveSecrets(ctx context.Context, resolver SecretResolver) error {
	for name, api := range map[string]*API{
		"backend":             &s.Backend,
		"npwd":                &s.Npwd,
		"rrepw":               &s.Rrepw,
		"waste organisations": &s.WasteOrganisations,
	} {
		if !api.Authenticated() {
			continue
		}

		secret, err := resolver.Resolve(ctx, api.ClientSecret, api.ClientSecretARN)
		if err != nil {
			return fmt.Errorf("resolving %s client secret: %w", name, err)
		}
		api.ClientSecret = secret
	}

	return nil
}

// Load reads configuration from environment variables.
func Load() (*Settings, error) {
	return parse(env.Options{})
}

// parse reads settings with opts and validates them.
func parse(opts env.Options) (*Settings, error) {
	var cfg Settings
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.trim()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// trim removes surrounding whitespace from free-text values.
func (s *Settings) trim() {
	for _, api := range []*API{&s.Backend, &s.Npwd, &s.Rrepw, &s.WasteOrganisations} {
		api.BaseURL = strings.TrimSpace(api.BaseURL)
		api.ClientID = strings.TrimSpace(api.ClientID)
		api.ClientSecret = strings.TrimSpace(api.ClientSecret)
		api.ClientSecretARN = strings.TrimSpace(api.ClientSecretARN)
		api.TokenURL = strings.TrimSpace(api.TokenURL)
	}

	s.Email.From = strings.TrimSpace(s.Email.From)
	s.Email.OperatorRecipients = slices.DeleteFunc(s.Email.OperatorRecipients, func(r string) bool {
		return strings.TrimSpace(r) == ""
	})
	for i, r := range s.Email.OperatorRecipients {
		s.Email.OperatorRecipients[i] = strings.TrimSpace(r)
	}

	s.State.Backend = strings.ToLower(strings.TrimSpace(s.State.Backend))
}

func requiredError(envVar string) error {
	return fmt.Errorf("%s is required", envVar)
}
