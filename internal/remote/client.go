// Package remote provides the HTTP plumbing shared by the upstream API clients,
// and the classification of their failures into transient and non-transient.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// maxErrorBodyBytes bounds how much of an error response body is kept.
const maxErrorBodyBytes = 64 << 10

// Client sends JSON requests to a single upstream API.
type Client struct {
	// baseURL is the base URL for API requests.
	baseURL string

	// headers are sent with every request.
	headers map[string]string

	// httpClient is the HTTP client for making requests.
	httpClient *http.Client

	// limiter throttles requests, nil for unlimited.
	limiter *rate.Limiter

	// retry configures in-call retries.
	retry RetryConfig
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends a request and decodes a JSON response into result, when result is non-nil.
//
// path is appended to the base URL unless it is already absolute, which lets callers
// follow next links returned by paginated APIs. Transient failures are retried per
// the client's RetryConfig; the last failure is returned as a *StatusError when the
// server answered.
func (c *Client) Do(ctx context.Context, method string, path string, body any, result any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
	}

	reqURL := c.resolve(path)

	return retry.Do(ctx, c.retry.backoff(), func(ctx context.Context) error {
		err := c.doOnce(ctx, method, reqURL, payload, result)
		if err != nil && (Classifier{}).Classify(err) == ClassTransient && ctx.Err() == nil {
			return retry.RetryableError(err)
		}
		return err
	})
}

// doOnce executes a single HTTP attempt.
func (c *Client) doOnce(ctx context.Context, method string, reqURL string, payload []byte, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &StatusError{
			Body:       string(respBody),
			Method:     method,
			StatusCode: resp.StatusCode,
			URL:        reqURL,
		}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// resolve joins path onto the base URL unless path is absolute.
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}

	if o.credentials != nil {
		httpClient = authenticatedClient(*o.credentials, httpClient)
	}

	return &Client{
		baseURL:    baseURL,
		headers:    o.headers,
		httpClient: httpClient,
		limiter:    o.limiter,
		retry:      o.retry,
	}, nil
}
