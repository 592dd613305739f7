package domain

import "fmt"

// NetworkError indicates a transport-level failure talking to a provider.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProviderError indicates the provider returned an explicit error payload.
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider error: %s", e.Provider, e.Message)
}

// ParseError indicates a malformed or unexpectedly shaped response.
type ParseError struct {
	Provider string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error: %v", e.Provider, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TimeoutError indicates a single request exceeded its deadline.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: request timed out", e.Op)
}

// NotFoundError indicates the provider had no data for a requested symbol.
type NotFoundError struct {
	Provider string
	Symbol   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no data for %s", e.Provider, e.Symbol)
}
