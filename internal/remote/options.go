package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Option configures optional Client settings.
type Option func(*options) error

// options holds optional configuration for creating a Client.
type options struct {
	// credentials enables OAuth2 client credentials authentication.
	credentials *Credentials

	// headers are sent with every request.
	headers map[string]string

	// httpClient is a custom HTTP client.
	httpClient *http.Client

	// limiter throttles outgoing requests.
	limiter *rate.Limiter

	// retry configures in-call retries of transient failures.
	retry RetryConfig

	// timeout is the HTTP client timeout.
	timeout time.Duration
}

// WithClientCredentials authenticates requests with an OAuth2 client credentials grant.
func WithClientCredentials(creds Credentials) Option {
	return func(o *options) error {
		if err := creds.validate(); err != nil {
			return fmt.Errorf("invalid credentials: %w", err)
		}
		o.credentials = &creds
		return nil
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key string, value string) Option {
	return func(o *options) error {
		key = strings.TrimSpace(key)
		if key == "" {
			return errors.New("header key cannot be empty")
		}
		o.headers[key] = value
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client. Overrides WithTimeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) error {
		if httpClient == nil {
			return errors.New("HTTP client cannot be nil")
		}
		o.httpClient = httpClient
		return nil
	}
}

// WithRateLimit throttles requests to rps per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) error {
		if rps <= 0 {
			return fmt.Errorf("rate limit must be positive, got %v", rps)
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithRetry sets how transient failures are retried within a single call.
func WithRetry(cfg RetryConfig) Option {
	return func(o *options) error {
		if cfg.BaseDelay <= 0 {
			return fmt.Errorf("retry base delay must be positive, got %v", cfg.BaseDelay)
		}
		o.retry = cfg
		return nil
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", timeout)
		}
		o.timeout = timeout
		return nil
	}
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() *options {
	return &options{
		headers: map[string]string{},
		retry:   DefaultRetryConfig(),
		timeout: 30 * time.Second,
	}
}
