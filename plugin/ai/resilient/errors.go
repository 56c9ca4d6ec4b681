package resilient

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned when the secondary provider keeps signalling
// rate limiting after every attempt. Callers should suggest retrying later.
var ErrRateLimited = errors.New("AI service is currently rate-limited, please try again in a moment")

// ProviderError is an unrecovered hard failure from the last provider tried.
type ProviderError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed after %d attempt(s): %v", e.Provider, e.Attempts, e.Err)
}

// Unwrap returns the original provider failure.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is the terminal rate-limit condition.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsProviderFailure reports whether err is an unrecovered provider failure.
func IsProviderFailure(err error) bool {
	var providerErr *ProviderError
	return errors.As(err, &providerErr)
}
