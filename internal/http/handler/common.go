package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/straye-as/scorecard-api/internal/domain"
	"github.com/straye-as/scorecard-api/internal/scorecard"
	"github.com/straye-as/scorecard-api/internal/service"
	"go.uber.org/zap"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, err error) {
	errs := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			errs[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}

	respondProblem(w, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more parameters failed validation",
		Errors: errs,
	})
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "max":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("Failed on the '%s' rule", fe.Tag())
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondProblem(w, domain.APIError{
		Type:   getErrorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

func respondProblem(w http.ResponseWriter, problem domain.APIError) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

// getErrorType returns the appropriate error type for an HTTP status code
func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrorTypeBadRequest
	case http.StatusUnauthorized:
		return domain.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return domain.ErrorTypeForbidden
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	case http.StatusTooManyRequests:
		return domain.ErrorTypeRateLimited
	case http.StatusBadGateway:
		return domain.ErrorTypeUpstream
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return domain.ErrorTypeUnavailable
	default:
		return domain.ErrorTypeInternal
	}
}

// respondServiceError maps service and engine errors to problem responses.
// Record source failures are reported as a failed upstream naming the owner and
// phase; the scorecard is never served partially.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var fetchErr *domain.FetchError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, service.ErrPermissionDenied):
		respondWithError(w, http.StatusForbidden, "You are not allowed to view this scorecard")
	case errors.Is(err, service.ErrMissingHandle):
		respondWithError(w, http.StatusBadRequest, "API key requests must name a user in the X-Scorecard-User header")
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, scorecard.ErrEmptyIdentity):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSnapshotNotFound):
		respondWithError(w, http.StatusNotFound, "No stored scorecard for this user and range")
	case errors.Is(err, service.ErrExportUnavailable):
		respondWithError(w, http.StatusServiceUnavailable, "Scorecard exports are not configured")
	case errors.As(err, &fetchErr):
		logger.Error("record source fetch failed",
			zap.String("owner", fetchErr.Owner.String()),
			zap.String("phase", string(fetchErr.Phase)),
			zap.Error(fetchErr.Err))
		detail := fmt.Sprintf("Failed to load %s records", fetchErr.Phase)
		if !fetchErr.Owner.IsZero() {
			detail = fmt.Sprintf("Failed to load %s records for %s", fetchErr.Phase, fetchErr.Owner)
		}
		respondWithError(w, http.StatusBadGateway, detail)
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("scorecard request timed out", zap.Error(err))
		respondWithError(w, http.StatusGatewayTimeout, "Scorecard computation timed out")
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		logger.Error("unexpected scorecard error", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
