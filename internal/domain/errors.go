package domain

import (
	"errors"
	"fmt"
)

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeConflict     = "conflict"
	ErrorTypeRateLimited  = "rate_limited"
	ErrorTypeUnavailable  = "service_unavailable"
	ErrorTypeUpstream     = "upstream_error"
	ErrorTypeInternal     = "internal_error"
)

// ErrAdapterFailure marks a failed fetch from the record source
var ErrAdapterFailure = errors.New("record source fetch failed")

// FetchPhase names the step of the pipeline a fetch belonged to
type FetchPhase string

const (
	FetchPhaseSelf      FetchPhase = "self"
	FetchPhaseScope     FetchPhase = "scope"
	FetchPhaseDirectory FetchPhase = "directory"
)

// FetchError carries the owner and phase of a failed fetch. It is always fatal
// to the scorecard being computed.
type FetchError struct {
	Owner Identity
	Phase FetchPhase
	Err   error
}

func (e *FetchError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("%s fetch failed: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s fetch for %s failed: %v", e.Phase, e.Owner, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrAdapterFailure, e.Err}
}
