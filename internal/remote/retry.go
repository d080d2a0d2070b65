package remote

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryConfig holds the backoff used for transient failures inside one call.
// Exhausting it returns the last error, which the caller then classifies.
type RetryConfig struct {
	// BaseDelay is the first backoff interval.
	BaseDelay time.Duration

	// JitterPercent randomises each interval by up to this percentage.
	JitterPercent uint64

	// MaxDelay caps a single backoff interval.
	MaxDelay time.Duration

	// MaxRetries is the number of retries after the first attempt. Zero disables retries.
	MaxRetries uint64
}

// DefaultRetryConfig returns the retry settings used when none are supplied.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		BaseDelay:     200 * time.Millisecond,
		JitterPercent: 10,
		MaxDelay:      2 * time.Second,
		MaxRetries:    2,
	}
}

// NoRetry returns settings that make a single attempt.
func NoRetry() RetryConfig {
	return RetryConfig{BaseDelay: time.Millisecond}
}

// backoff builds a fresh backoff for one call.
func (c RetryConfig) backoff() retry.Backoff {
	b := retry.NewExponential(c.BaseDelay)
	b = retry.WithMaxRetries(c.MaxRetries, b)
	if c.MaxDelay > 0 {
		b = retry.WithCappedDuration(c.MaxDelay, b)
	}
	if c.JitterPercent > 0 {
		b = retry.WithJitterPercent(c.JitterPercent, b)
	}
	return b
}
