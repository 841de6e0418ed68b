package social

import (
	"errors"
	"fmt"
	"time"
)

// DefaultRetryAfter is used when a 429 carries no usable reset information.
const DefaultRetryAfter = 60 * time.Second

// MinRetryAfter is the floor for any computed rate-limit sleep.
const MinRetryAfter = time.Second

// ErrPostNotFound is returned when a post lookup yields no data.
var ErrPostNotFound = errors.New("post not found")

// RateLimitedError is returned on HTTP 429.
type RateLimitedError struct {
	RetryAfter time.Duration // >= MinRetryAfter
	Reset      time.Time     // when the window reopens
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// UpstreamError is returned for any other non-2xx response.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error %d: %s", e.StatusCode, e.Message)
}

// TransientError wraps transport failures and timeouts.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a RateLimitedError and returns it.
func IsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

// IsTransient reports whether err is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
