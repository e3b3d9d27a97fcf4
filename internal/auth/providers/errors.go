package providers

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures
type ErrorKind int

const (
	ExchangeFailed ErrorKind = iota + 1
	ProfileFetchFailed
)

func (k ErrorKind) String() string {
	switch k {
	case ExchangeFailed:
		return "exchange_failed"
	case ProfileFetchFailed:
		return "profile_fetch_failed"
	default:
		return "unknown"
	}
}

// ProviderError is returned by every failing Provider call.
type ProviderError struct {
	Kind ErrorKind
	// StatusCode is the upstream HTTP status, zero for transport or decode failures
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a *ProviderError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == kind
}

func exchangeError(status int, err error) error {
	return &ProviderError{Kind: ExchangeFailed, StatusCode: status, Err: err}
}

func profileError(status int, err error) error {
	return &ProviderError{Kind: ProfileFetchFailed, StatusCode: status, Err: err}
}
