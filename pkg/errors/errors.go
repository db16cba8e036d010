package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Domain errors
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// Application errors
	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"

	// Engine errors
	ErrorTypeDelivery         ErrorType = "DELIVERY"
	ErrorTypeSchedulerOverrun ErrorType = "SCHEDULER_OVERRUN"

	// Infrastructure errors
	ErrorTypeDatabase ErrorType = "DATABASE"
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// Codes clients branch on
const (
	CodeProtectionInactive = "PROTECTION_INACTIVE"
	CodeProfileIncomplete  = "PROFILE_INCOMPLETE"
)

var statusByType = map[ErrorType]int{
	ErrorTypeValidation:       http.StatusBadRequest,
	ErrorTypeNotFound:         http.StatusNotFound,
	ErrorTypeConflict:         http.StatusConflict,
	ErrorTypeUnauthorized:     http.StatusUnauthorized,
	ErrorTypeInternal:         http.StatusInternalServerError,
	ErrorTypeTimeout:          http.StatusGatewayTimeout,
	ErrorTypeUnavailable:      http.StatusServiceUnavailable,
	ErrorTypeDelivery:         http.StatusBadGateway,
	ErrorTypeSchedulerOverrun: http.StatusInternalServerError,
	ErrorTypeDatabase:         http.StatusInternalServerError,
	ErrorTypeExternal:         http.StatusBadGateway,
}

// AppError represents an application-specific error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func newError(t ErrorType, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		HTTPStatus: statusByType[t],
		StackTrace: captureStackTrace(),
	}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode sets the machine-readable code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails merges details into the error
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

func captureStackTrace() string {
	var pcs [32]uintptr
	n := runtime.Callers(4, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&sb, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return sb.String()
}

func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, message)
}

func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, message)
}

func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return newError(ErrorTypeUnauthorized, message)
}

func NewInternalError(message string) *AppError {
	return newError(ErrorTypeInternal, message)
}

func NewTimeoutError(operation string) *AppError {
	return newError(ErrorTypeTimeout, fmt.Sprintf("operation '%s' timed out", operation))
}

func NewUnavailableError(service string) *AppError {
	return newError(ErrorTypeUnavailable, fmt.Sprintf("service '%s' is unavailable", service))
}

// NewProtectionInactiveError is returned for user actions while protection is off
func NewProtectionInactiveError(message string) *AppError {
	return newError(ErrorTypeConflict, message).WithCode(CodeProtectionInactive)
}

// NewDeliveryError reports that a single contact could not be notified.
// It never aborts the remaining sends of a dispatch.
func NewDeliveryError(contact string, err error) *AppError {
	return newError(ErrorTypeDelivery, fmt.Sprintf("notification to '%s' failed", contact)).
		WithCause(err).
		WithDetails(map[string]interface{}{"contact": contact})
}

// NewSchedulerOverrunError reports a tick that fired later than its period.
// Overruns are frequent and expected under load, so no stack is captured.
func NewSchedulerOverrunError(timer string, late time.Duration) *AppError {
	return &AppError{
		Type:       ErrorTypeSchedulerOverrun,
		Message:    fmt.Sprintf("timer '%s' fired %s late", timer, late),
		HTTPStatus: statusByType[ErrorTypeSchedulerOverrun],
		Details:    map[string]interface{}{"timer": timer, "late_ms": late.Milliseconds()},
	}
}

func NewDatabaseError(operation string, err error) *AppError {
	return newError(ErrorTypeDatabase, fmt.Sprintf("database operation '%s' failed", operation)).WithCause(err)
}

func NewExternalError(service string, err error) *AppError {
	return newError(ErrorTypeExternal, fmt.Sprintf("external service '%s' error", service)).WithCause(err)
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

func IsValidation(err error) bool { return IsType(err, ErrorTypeValidation) }

func IsDelivery(err error) bool { return IsType(err, ErrorTypeDelivery) }

// HasCode reports whether err carries the given code
func HasCode(err error, code string) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// Wrap adds context to err. AppErrors keep their type; anything else
// becomes an internal error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
