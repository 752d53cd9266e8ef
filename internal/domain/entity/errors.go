package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrAllProvidersFailed is returned by an aggregation when every provider
	// that was invoked failed.
	ErrAllProvidersFailed = errors.New("all price providers failed")

	// ErrNotFound is returned when an account or position id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPosition is returned for position input that fails validation.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrInvalidAccount is returned for account input that fails validation.
	ErrInvalidAccount = errors.New("invalid account")
)

// ProviderErrorKind classifies why a provider call failed.
type ProviderErrorKind string

const (
	ProviderErrorTransport ProviderErrorKind = "transport"
	ProviderErrorStatus    ProviderErrorKind = "status"
	ProviderErrorMalformed ProviderErrorKind = "malformed"
)

// ProviderError is a network or parse failure scoped to a single provider.
type ProviderError struct {
	Provider   string
	Kind       ProviderErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Kind == ProviderErrorStatus:
		return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError builds a ProviderError of the given kind.
func NewProviderError(provider string, kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// NewProviderStatusError builds a ProviderError for a non-success HTTP status.
func NewProviderStatusError(provider string, statusCode int) *ProviderError {
	return &ProviderError{Provider: provider, Kind: ProviderErrorStatus, StatusCode: statusCode}
}
