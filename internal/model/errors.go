package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStoreCorrupt is returned when a persisted store exists but cannot be parsed.
	ErrStoreCorrupt = errors.New("record store is corrupt")

	// ErrInvalidTransition is returned when a record mutation would revert a
	// terminal field.
	ErrInvalidTransition = errors.New("invalid record transition")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
