package errors

import (
	"errors"
	"net/http"

	"kintai/internal/model"
)

var (
	// ErrAuthentication covers bad credentials and invalid or expired tokens.
	ErrAuthentication = errors.New("authentication failed")
	// ErrForbidden is returned when the authorization policy denies an operation.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation is returned for malformed input such as an empty time range.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a conditional write matched no row.
	ErrConflict = errors.New("state changed concurrently")
	// ErrStoreFailure wraps an underlying persistence error.
	ErrStoreFailure = errors.New("store failure")
	// ErrConfiguration is returned by config loading; fatal at startup.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateID is returned when a user id is already taken.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrHashFailure is returned when password hashing fails.
	ErrHashFailure = errors.New("password hashing failed")
	// ErrSigningFailure is returned when a token cannot be signed.
	ErrSigningFailure = errors.New("token signing failed")
)

// ErrIllegalTransition is re-exported so transport code needs a single import.
var ErrIllegalTransition = model.ErrIllegalTransition

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Authentication and
// authorization failures never carry the underlying cause.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrAuthentication):
		return NewHTTPError(http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED")
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrIllegalTransition):
		return NewHTTPError(http.StatusForbidden, "forbidden", "FORBIDDEN")
	case errors.Is(err, ErrConflict):
		return NewHTTPError(http.StatusConflict, err.Error(), "CONFLICT")
	case errors.Is(err, ErrDuplicateID):
		return NewHTTPError(http.StatusConflict, "id already exists", "DUPLICATE_ID")
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, "not found", "NOT_FOUND")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

// IsInternal reports whether err maps to a 500 and should be logged and reported.
func IsInternal(err error) bool {
	return MapErrorToHTTP(err).StatusCode == http.StatusInternalServerError
}
