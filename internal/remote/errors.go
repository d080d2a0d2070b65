package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"

	"golang.org/x/oauth2"
)

const (
	// ClassSuccess means the call succeeded.
	ClassSuccess Class = iota

	// ClassNonTransient means the call failed in a way a retry will not fix.
	ClassNonTransient

	// ClassTransient means the call failed in a way expected to resolve by itself.
	ClassTransient

	// ClassSkipped means the call failed with a status the caller chose to skip quietly.
	ClassSkipped
)

// Class is the outcome category of a remote call.
type Class int

// String returns the class name used in logs.
func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassNonTransient:
		return "non_transient"
	case ClassTransient:
		return "transient"
	case ClassSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// StatusError is returned when a remote API answers with a non-2xx status.
type StatusError struct {
	// Body is the raw response body.
	Body string

	// Method is the HTTP method of the failed request.
	Method string

	// StatusCode is the HTTP status returned.
	StatusCode int

	// URL is the request URL.
	URL string
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// transientError marks an error as transient whatever its cause.
type transientError struct {
	err error
}

// Error implements error.
func (e *transientError) Error() string {
	return e.err.Error()
}

// Unwrap returns the marked error.
func (e *transientError) Unwrap() error {
	return e.err
}

// MarkTransient wraps err so that Classify reports it as transient.
// It is used for failures of non-HTTP transports, such as queue sends.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Classifier maps call errors onto classes.
type Classifier struct {
	// Skip lists statuses that are skipped rather than counted as failures.
	Skip []int
}

// Classify returns the class of err, where nil is success.
func (c Classifier) Classify(err error) Class {
	if err == nil {
		return ClassSuccess
	}

	var marked *transientError
	if errors.As(err, &marked) {
		return ClassTransient
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if slices.Contains(c.Skip, statusErr.StatusCode) {
			return ClassSkipped
		}
		return ClassifyStatus(statusErr.StatusCode)
	}

	// Token endpoint failures are never skipped: they affect every item, not one.
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) && tokenErr.Response != nil {
		return ClassifyStatus(tokenErr.Response.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}

	return ClassNonTransient
}

// ClassifyStatus returns the class of an HTTP status code.
func ClassifyStatus(code int) Class {
	switch {
	case code >= 200 && code < 300:
		return ClassSuccess
	case IsTransientStatus(code):
		return ClassTransient
	default:
		return ClassNonTransient
	}
}

// IsTransientStatus reports whether code is 5xx, 408 or 429.
func IsTransientStatus(code int) bool {
	return code >= 500 && code < 600 ||
		code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests
}

// IsServerFailure reports whether err carries a 5xx or 408 status.
// These are the failures operators are emailed about.
func IsServerFailure(err error) bool {
	code, ok := StatusCode(err)
	if !ok {
		return false
	}
	return code >= 500 && code < 600 || code == http.StatusRequestTimeout
}

// StatusCode extracts the HTTP status from err, if it wraps a StatusError
// or a failed OAuth token request.
func StatusCode(err error) (int, bool) {
	code, _, ok := statusOf(err)
	return code, ok
}

// ResponseBody extracts the raw response body from err, if it wraps a StatusError
// or a failed OAuth token request.
func ResponseBody(err error) string {
	_, body, _ := statusOf(err)
	return body
}

// statusOf returns the status and body of the HTTP response carried by err.
func statusOf(err error) (int, string, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, statusErr.Body, true
	}

	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) && tokenErr.Response != nil {
		return tokenErr.Response.StatusCode, string(tokenErr.Body), true
	}

	return 0, "", false
}
