package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrRateLimitExhausted is returned once the retry budget for a
	// rate-limited provider call is spent.
	ErrRateLimitExhausted = errors.New("provider rate limit exhausted")

	// ErrNoProviderData means the provider answered but the payload held
	// no usable food data for the requested id.
	ErrNoProviderData = errors.New("no usable data in provider response")

	// ErrInvalidReference means a log entry referenced a food or serving
	// id that resolution could not materialize.
	ErrInvalidReference = errors.New("referenced food or serving not found")
)

// ProviderError is a non-2xx answer from the FatSecret proxy.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}

// RateLimited reports whether this failure is the provider's throttle
// signal, the only class of error worth retrying.
func (e *ProviderError) RateLimited() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "too many actions")
}

// IsRateLimited reports whether err (anywhere in its chain) is a
// retryable provider throttle error.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.RateLimited()
}
