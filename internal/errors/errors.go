// Package errors provides the error taxonomy shared by the hunting, history and API packages.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"golift.io/starr"
)

// NonRetryableError represents an error that should not be retried.
// Operations that encounter this error type should fail immediately
// without retry attempts.
type NonRetryableError struct {
	message string
	cause   error
}

// Error implements the error interface.
func (e *NonRetryableError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying cause error for error unwrapping.
func (e *NonRetryableError) Unwrap() error {
	return e.cause
}

// NewNonRetryableError creates a new non-retryable error with a message and optional cause.
func NewNonRetryableError(message string, cause error) error {
	return &NonRetryableError{
		message: message,
		cause:   cause,
	}
}

// IsNonRetryable checks if an error is non-retryable.
func IsNonRetryable(err error) bool {
	var nonRetryableErr *NonRetryableError
	return errors.As(err, &nonRetryableErr)
}

// TransientError marks a vendor I/O failure that the next poll will retry.
type TransientError struct {
	Op    string
	cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.cause)
}

func (e *TransientError) Unwrap() error {
	return e.cause
}

// NewTransient wraps err as a transient failure of op.
func NewTransient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, cause: err}
}

// IsTransient reports whether err is a timeout, a refused connection or a vendor 5xx.
func IsTransient(err error) bool {
	if err == nil || IsNonRetryable(err) {
		return false
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var reqErr *starr.ReqError
	if errors.As(err, &reqErr) {
		return reqErr.Code >= http.StatusInternalServerError || reqErr.Code == http.StatusTooManyRequests
	}

	return false
}

// ConfigurationError reports a missing URL or key, or an app that is not configured.
type ConfigurationError struct {
	AppType  string
	Instance string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Instance != "" {
		return fmt.Sprintf("%s instance %q: %s", e.AppType, e.Instance, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.AppType, e.Reason)
}

// Is lets errors.Is match any ConfigurationError against ErrInstanceNotConfigured.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInstanceNotConfigured
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(appType, instance, reason string) error {
	return &ConfigurationError{AppType: appType, Instance: instance, Reason: reason}
}

// IsConfiguration reports whether err is a configuration problem.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

var (
	ErrUnknownAppType        = errors.New("unknown app type")
	ErrMissingField          = errors.New("missing required field")
	ErrInvalidSettings       = errors.New("invalid settings document")
	ErrDuplicateEntry        = errors.New("history entry already exists")
	ErrEntryNotFound         = errors.New("history entry not found")
	ErrInstanceNotConfigured = errors.New("instance not configured")
	ErrUnsupported           = NewNonRetryableError("operation not supported by app", nil)

	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTwoFactorRequired  = errors.New("two-factor code required")
	ErrInvalidTOTP        = errors.New("invalid two-factor code")
	ErrWeakPassword       = errors.New("password must be at least 8 characters long")
)
