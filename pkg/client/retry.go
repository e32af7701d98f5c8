package client

import (
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default retry configuration values, see DefaultRetry.
const (
	// RetriesCount is the default maximum number of retries of one request.
	RetriesCount = 5
	// RequestTimeout is the default total request timeout, including all retries.
	RequestTimeout = 30 * time.Second
	// RetryWaitTimeStart is the default delay before the first retry.
	RetryWaitTimeStart = 100 * time.Millisecond
	// RetryWaitTimeMax is the default upper bound of the exponential backoff delay.
	RetryWaitTimeMax = 3 * time.Second
)

// RetryCondition decides whether a request attempt should be retried.
type RetryCondition func(*http.Response, error) bool

// RetryConfig configures Client retries.
type RetryConfig struct {
	Condition           RetryCondition
	Count               int
	TotalRequestTimeout time.Duration
	WaitTimeStart       time.Duration
	WaitTimeMax         time.Duration
}

// DefaultRetry returns the default RetryConfig.
func DefaultRetry() RetryConfig {
	return RetryConfig{
		TotalRequestTimeout: RequestTimeout,
		Count:               RetriesCount,
		WaitTimeStart:       RetryWaitTimeStart,
		WaitTimeMax:         RetryWaitTimeMax,
		Condition:           DefaultRetryCondition(),
	}
}

// TestingRetry returns a RetryConfig with minimal delays, for use in tests.
func TestingRetry() RetryConfig {
	v := DefaultRetry()
	v.WaitTimeStart = 1 * time.Millisecond
	v.WaitTimeMax = 1 * time.Millisecond
	return v
}

// DefaultRetryCondition retries network errors and common transient HTTP status codes.
func DefaultRetryCondition() RetryCondition {
	return func(response *http.Response, err error) bool {
		// Network errors, except an unresolvable hostname
		if response == nil || response.StatusCode == 0 {
			switch {
			case strings.Contains(err.Error(), "No address associated with hostname"):
				return false
			case strings.Contains(err.Error(), "no such host"):
				return false
			default:
				return true
			}
		}

		switch response.StatusCode {
		case
			http.StatusRequestTimeout,
			http.StatusConflict,
			http.StatusLocked,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
}

// NewBackoff returns the exponential backoff state for one request.
func (c RetryConfig) NewBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.WaitTimeStart
	b.MaxInterval = c.WaitTimeMax
	b.MaxElapsedTime = c.TotalRequestTimeout
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	return b
}
