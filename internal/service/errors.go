package service

import "errors"

// Common service errors
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMissingHandle is returned when an API key caller asks for "their" scorecard
	// without naming a user
	ErrMissingHandle = errors.New("no user handle on request")

	// ErrSnapshotNotFound is returned when no export exists for the identity and range
	ErrSnapshotNotFound = errors.New("scorecard snapshot not found")

	// ErrExportUnavailable is returned when exports are requested without a snapshot store
	ErrExportUnavailable = errors.New("scorecard export not configured")
)
