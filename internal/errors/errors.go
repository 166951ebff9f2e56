// Package errors provides the categorized error taxonomy used across the
// kosha backend: validation, not-found, authorization, dependency and
// cache failures, each carrying an HTTP status for the API layer.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/kosha-finance/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryValidation represents invalid caller input (4xx)
	CategoryValidation ErrorCategory = "validation"
	// CategoryNotFound represents a missing referenced resource
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryAuthorization represents ownership or credential failures
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryDependency represents failures of a data store on the critical path
	CategoryDependency ErrorCategory = "dependency"
	// CategoryCache represents cache-backend failures (always recoverable)
	CategoryCache ErrorCategory = "cache"
	// CategorySystem represents unexpected internal failures
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to the wire-level ServiceError shape
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewValidationError creates an invalid parameter error
func NewValidationError(param, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_INPUT",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewNotFoundError creates a not found error for a resource kind and ID
func NewNotFoundError(resource, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewForbiddenError creates an ownership-mismatch error
func NewForbiddenError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
	}
}

// NewUnauthorizedError creates a missing/invalid credential error
func NewUnauthorizedError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// NewDependencyError creates a data-store failure error for the critical path
func NewDependencyError(store, operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDependency,
		StatusCode: http.StatusBadGateway,
		Code:       "DEPENDENCY_FAILURE",
		Message:    fmt.Sprintf("%s failure during %s", store, operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"store":     store,
			"operation": operation,
		},
	}
}

// NewCacheError creates a cache-backend error. Callers on the summary
// path must treat this as soft and fall through to live computation.
func NewCacheError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryCache,
		StatusCode: http.StatusInternalServerError,
		Code:       "CACHE_ERROR",
		Message:    fmt.Sprintf("cache error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// Categorize maps an arbitrary error onto the taxonomy. ServiceErrors are
// mapped by code; anything unknown becomes an internal error.
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if stderrors.As(err, &svcErr) {
		return categorizeServiceError(svcErr)
	}

	return NewInternalError("unexpected error", err)
}

func categorizeServiceError(err *types.ServiceError) *CategorizedError {
	var category ErrorCategory
	var status int

	switch err.Code {
	case "INVALID_INPUT", "SYMBOL_REQUIRED":
		category, status = CategoryValidation, http.StatusBadRequest
	case "ASSET_NOT_FOUND", "TRANSACTION_NOT_FOUND", "BILL_NOT_FOUND",
		"PRICE_NOT_FOUND", "NOTIFICATION_NOT_FOUND":
		category, status = CategoryNotFound, http.StatusNotFound
	case "FORBIDDEN":
		category, status = CategoryAuthorization, http.StatusForbidden
	case "UNAUTHORIZED":
		category, status = CategoryAuthorization, http.StatusUnauthorized
	case "DEPENDENCY_FAILURE":
		category, status = CategoryDependency, http.StatusBadGateway
	default:
		category, status = CategorySystem, http.StatusInternalServerError
	}

	return &CategorizedError{
		Category:   category,
		StatusCode: status,
		Code:       err.Code,
		Message:    err.Message,
		Details:    err.Details,
	}
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRecoverable reports whether the aggregation paths may continue past
// this error. Only cache failures qualify; everything else fails the
// whole operation.
func IsRecoverable(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Category == CategoryCache
}
