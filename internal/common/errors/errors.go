// Package errors provides standardized error handling for the API and the
// workflow workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidRequest          ErrorCode = "INVALID_REQUEST"
	ErrCodeProfileValidationFailed ErrorCode = "PROFILE_VALIDATION_FAILED"
	ErrCodeUnknownStep             ErrorCode = "UNKNOWN_STEP"
	ErrCodeRouteGated              ErrorCode = "ROUTE_GATED"
	ErrCodeSessionNotFound         ErrorCode = "SESSION_NOT_FOUND"

	ErrCodeStateDecodeFailed  ErrorCode = "STATE_DECODE_FAILED"
	ErrCodeStorageReadFailed  ErrorCode = "STORAGE_READ_FAILED"
	ErrCodeStorageWriteFailed ErrorCode = "STORAGE_WRITE_FAILED"
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// newError derives Retryable from the code's retry budget.
func newError(code ErrorCode, message, details string, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: IsRetryableErrorCode(code),
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Invalid request", details, nil)
}

// NewProfileValidationError lists every schema violation in Details.
func NewProfileValidationError(violations []string) *StandardError {
	return newError(ErrCodeProfileValidationFailed, "Profile validation failed",
		strings.Join(violations, "; "), nil).
		WithMetadata("violations", violations)
}

func NewUnknownStepError(step string) *StandardError {
	return newError(ErrCodeUnknownStep, "Unknown navigation step", fmt.Sprintf("step: %s", step), nil)
}

func NewRouteGatedError(route, missingStep string) *StandardError {
	return newError(ErrCodeRouteGated, "Route is not reachable yet",
		fmt.Sprintf("route: %s, missing step: %s", route, missingStep), nil).
		WithMetadata("route", route).
		WithMetadata("missingStep", missingStep)
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Session not found", fmt.Sprintf("sessionId: %s", sessionID), nil)
}

// NewStateDecodeError reports a persisted value that could not be decoded.
func NewStateDecodeError(key string, err error) *StandardError {
	return newError(ErrCodeStateDecodeFailed, "Persisted state is malformed",
		fmt.Sprintf("key: %s, error: %v", key, err), err).
		WithMetadata("key", key)
}

func NewStorageReadError(key string, err error) *StandardError {
	return newError(ErrCodeStorageReadFailed, "Storage read failed",
		fmt.Sprintf("key: %s, error: %v", key, err), err)
}

func NewStorageWriteError(key string, err error) *StandardError {
	return newError(ErrCodeStorageWriteFailed, "Storage write failed",
		fmt.Sprintf("key: %s, error: %v", key, err), err)
}

func NewStorageUnavailableError(backend string, err error) *StandardError {
	return newError(ErrCodeStorageUnavailable, fmt.Sprintf("Storage backend '%s' unavailable", backend),
		err.Error(), err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), err)
}

// AsStandard unwraps err into a *StandardError, wrapping unknown errors as
// INTERNAL_ERROR.
func AsStandard(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// HTTPStatus maps an error code onto the status the API responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeProfileValidationFailed, ErrCodeUnknownStep:
		return http.StatusBadRequest
	case ErrCodeRouteGated:
		return http.StatusForbidden
	case ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodeStorageReadFailed, ErrCodeStorageWriteFailed, ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetRetryCount returns how many times a worker job should be retried.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStorageReadFailed, ErrCodeStorageWriteFailed:
		return 3
	case ErrCodeStorageUnavailable:
		return 2
	default:
		return 0 // business errors: no retry
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "STORAGE") || strings.Contains(codeStr, "DECODE"):
		return "STORAGE"
	case strings.Contains(codeStr, "STEP") || strings.Contains(codeStr, "ROUTE") || strings.Contains(codeStr, "SESSION"):
		return "NAVIGATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// BPMNError represents an error thrown back to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}
	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}
