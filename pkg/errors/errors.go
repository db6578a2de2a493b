// Package errors provides structured error handling for the management client
package errors

import (
	"errors"
	"fmt"

	"github.com/camelspeed/couchnode/pkg/types"
)

// ErrorCode represents specific error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeConfigError  ErrorCode = "CONFIG_ERROR"

	// Resource errors
	ErrCodeUserNotFound  ErrorCode = "USER_NOT_FOUND"
	ErrCodeGroupNotFound ErrorCode = "GROUP_NOT_FOUND"

	// Operation errors
	ErrCodeOperationFailed ErrorCode = "OPERATION_FAILED"

	// Transport errors
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout          ErrorCode = "TIMEOUT"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// ManagementError represents a structured error raised by the management client.
// StatusCode and Body carry the original HTTP detail when the error was mapped
// from a management endpoint response.
type ManagementError struct {
	Type       types.ErrorType        `json:"type"`
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code,omitempty"`
	Body       string                 `json:"body,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	RequestID  string                 `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *ManagementError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (caused by: %v)", e.Code, e.Type, e.Message, e.Cause)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] %s: %s (status %d)", e.Code, e.Type, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *ManagementError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *ManagementError) WithDetail(key string, value interface{}) *ManagementError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRequestID adds a request ID to the error
func (e *ManagementError) WithRequestID(requestID string) *ManagementError {
	e.RequestID = requestID
	return e
}

// WithHTTPDetail attaches the original HTTP status and body snippet
func (e *ManagementError) WithHTTPDetail(statusCode int, body string) *ManagementError {
	e.StatusCode = statusCode
	e.Body = body
	return e
}

// NewManagementError creates a new management error
func NewManagementError(errType types.ErrorType, code ErrorCode, message string) *ManagementError {
	return &ManagementError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// NewManagementErrorWithCause creates a new management error with a cause
func NewManagementErrorWithCause(errType types.ErrorType, code ErrorCode, message string, cause error) *ManagementError {
	return &ManagementError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Validation error constructors
func NewInvalidInputError(message string) *ManagementError {
	return NewManagementError(types.ErrorTypeValidation, ErrCodeInvalidInput, message)
}

func NewConfigError(message string) *ManagementError {
	return NewManagementError(types.ErrorTypeValidation, ErrCodeConfigError, message)
}

// Resource error constructors
func NewUserNotFoundError(username string) *ManagementError {
	return NewManagementError(types.ErrorTypeNotFound, ErrCodeUserNotFound,
		fmt.Sprintf("user not found: %s", username)).WithDetail("username", username)
}

func NewGroupNotFoundError(groupName string) *ManagementError {
	return NewManagementError(types.ErrorTypeNotFound, ErrCodeGroupNotFound,
		fmt.Sprintf("group not found: %s", groupName)).WithDetail("group_name", groupName)
}

// Operation error constructors
func NewOperationFailedError(action string, statusCode int, body string) *ManagementError {
	return NewManagementError(types.ErrorTypeInternal, ErrCodeOperationFailed,
		fmt.Sprintf("failed to %s", action)).
		WithDetail("action", action).
		WithHTTPDetail(statusCode, body)
}

// Transport error constructors
func NewConnectionFailedError(target string, cause error) *ManagementError {
	return NewManagementErrorWithCause(types.ErrorTypeTransport, ErrCodeConnectionFailed,
		fmt.Sprintf("failed to connect to %s", target), cause).WithDetail("target", target)
}

func NewTimeoutError(operation string, cause error) *ManagementError {
	return NewManagementErrorWithCause(types.ErrorTypeTransport, ErrCodeTimeout,
		fmt.Sprintf("%s operation timed out", operation), cause).WithDetail("operation", operation)
}

func NewInternalError(message string) *ManagementError {
	return NewManagementError(types.ErrorTypeInternal, ErrCodeInternal, message)
}

// IsManagementError checks if an error is a ManagementError
func IsManagementError(err error) bool {
	var mgmtErr *ManagementError
	return errors.As(err, &mgmtErr)
}

// GetManagementError extracts a ManagementError from an error
func GetManagementError(err error) *ManagementError {
	var mgmtErr *ManagementError
	if errors.As(err, &mgmtErr) {
		return mgmtErr
	}
	return nil
}

// IsNotFound reports whether the error is a user or group not-found error
func IsNotFound(err error) bool {
	mgmtErr := GetManagementError(err)
	return mgmtErr != nil && mgmtErr.Type == types.ErrorTypeNotFound
}

// IsUserNotFound reports whether the error is a user not-found error
func IsUserNotFound(err error) bool {
	mgmtErr := GetManagementError(err)
	return mgmtErr != nil && mgmtErr.Code == ErrCodeUserNotFound
}

// IsGroupNotFound reports whether the error is a group not-found error
func IsGroupNotFound(err error) bool {
	mgmtErr := GetManagementError(err)
	return mgmtErr != nil && mgmtErr.Code == ErrCodeGroupNotFound
}

// IsOperationFailed reports whether the error is a generic operation failure
func IsOperationFailed(err error) bool {
	mgmtErr := GetManagementError(err)
	return mgmtErr != nil && mgmtErr.Code == ErrCodeOperationFailed
}

// WrapError wraps an error as a ManagementError
func WrapError(err error, errType types.ErrorType, code ErrorCode, message string) *ManagementError {
	return NewManagementErrorWithCause(errType, code, message, err)
}
