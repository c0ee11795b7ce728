package errors

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeConflict      ErrorType = "conflict"
	ErrorTypeUnauthorized  ErrorType = "unauthorized"
	ErrorTypeForbidden     ErrorType = "forbidden"
	ErrorTypeUpstream      ErrorType = "upstream"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypePartialUpdate ErrorType = "partial_update"
)

// APIError represents a structured API error. Only Message reaches the client.
type APIError struct {
	Type        ErrorType `json:"type"`
	Code        string    `json:"code"`
	Message     string    `json:"message"`
	Details     string    `json:"details,omitempty"`
	HTTPStatus  int       `json:"-"`
	InternalErr error     `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s (%s)", e.Message, e.Code)
	if e.Details != "" {
		msg = fmt.Sprintf("%s: %s (%s)", e.Message, e.Details, e.Code)
	}
	if e.InternalErr != nil {
		return msg + ": " + e.InternalErr.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *APIError) Unwrap() error {
	return e.InternalErr
}

// NewAPIError creates a new API error
func NewAPIError(errorType ErrorType, code, message string, httpStatus int) *APIError {
	return &APIError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// NewAPIErrorWithCause creates a new API error with an underlying cause
func NewAPIErrorWithCause(errorType ErrorType, code, message string, httpStatus int, cause error) *APIError {
	return &APIError{
		Type:        errorType,
		Code:        code,
		Message:     message,
		HTTPStatus:  httpStatus,
		InternalErr: cause,
	}
}

// ValidationError creates a validation error
func ValidationError(code, message string) *APIError {
	return NewAPIError(ErrorTypeValidation, code, message, http.StatusBadRequest)
}

// NotFoundError creates a not found error
func NotFoundError(resource string) *APIError {
	return NewAPIError(ErrorTypeNotFound, "RESOURCE_NOT_FOUND", fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ConflictError creates a conflict error
func ConflictError(message string) *APIError {
	return NewAPIError(ErrorTypeConflict, "RESOURCE_CONFLICT", message, http.StatusConflict)
}

// UnauthorizedError creates an unauthorized error
func UnauthorizedError(message string) *APIError {
	return NewAPIError(ErrorTypeUnauthorized, "UNAUTHORIZED", message, http.StatusUnauthorized)
}

// ForbiddenError creates an authorization error
func ForbiddenError(message string) *APIError {
	return NewAPIError(ErrorTypeForbidden, "FORBIDDEN", message, http.StatusForbidden)
}

// UpstreamError reports a failed call to the database, the identity provider
// or the storage provider. The provider message is passed through.
func UpstreamError(service, message string, cause error) *APIError {
	return NewAPIErrorWithCause(ErrorTypeUpstream, "UPSTREAM_ERROR",
		fmt.Sprintf("%s: %s", service, message),
		http.StatusInternalServerError, cause)
}

// DatabaseError creates an upstream error for a failed database operation
func DatabaseError(operation string, cause error) *APIError {
	return NewAPIErrorWithCause(ErrorTypeUpstream, "DATABASE_ERROR",
		fmt.Sprintf("Database operation failed: %s", operation),
		http.StatusInternalServerError, cause)
}

// ConfigurationError is returned when a required third-party credential is
// missing or still set to a placeholder.
func ConfigurationError(message string) *APIError {
	return NewAPIError(ErrorTypeConfiguration, "NOT_CONFIGURED", message, http.StatusServiceUnavailable)
}

// PartialUpdateError reports that the profile row was updated but the
// identity record was not, so the two now disagree.
func PartialUpdateError(message string, cause error) *APIError {
	return NewAPIErrorWithCause(ErrorTypePartialUpdate, "PARTIAL_UPDATE",
		"partial update: "+message,
		http.StatusInternalServerError, cause)
}

// PayloadTooLargeError rejects a request body over limit bytes
func PayloadTooLargeError(limit int64) *APIError {
	return NewAPIError(ErrorTypeValidation, "REQUEST_TOO_LARGE",
		fmt.Sprintf("Request body exceeds the %d byte limit", limit), http.StatusRequestEntityTooLarge)
}

// GetAPIError extracts an APIError from anywhere in the error chain
func GetAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// IsType reports whether err carries an APIError of the given type
func IsType(err error, errorType ErrorType) bool {
	apiErr := GetAPIError(err)
	return apiErr != nil && apiErr.Type == errorType
}

// HandleDatabaseError maps a GORM error onto the taxonomy
func HandleDatabaseError(err error, resource, operation string) *APIError {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFoundError(resource)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ConflictError(fmt.Sprintf("%s already exists", resource))
	}
	return DatabaseError(operation, err)
}
