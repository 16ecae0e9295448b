package utils

import (
	"errors"
	"fmt"
)

// ProviderError wraps a failed call to an external provider (Mux, Stripe).
// Retryable marks network failures and 5xx responses; 4xx/validation failures
// are terminal. The services never retry themselves, the transport layer owns
// the retry policy.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s failed (status %d): %v", e.Provider, e.Op, e.StatusCode, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryableProviderError reports whether err is a provider failure worth
// retrying (used by the webhook transport to pick a status code that triggers
// a provider redelivery).
func IsRetryableProviderError(err error) bool {
	var providerErr *ProviderError
	return errors.As(err, &providerErr) && providerErr.Retryable
}
