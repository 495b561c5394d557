package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	errs "github.com/javi11/huntarr/internal/errors"
)

// Standard error codes
const (
	ErrCodeInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeSetupRequired      = "SETUP_REQUIRED"
	ErrCodeTwoFactorRequired  = "TWO_FACTOR_REQUIRED"
	ErrCodeUpstream           = "UPSTREAM_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Standard error messages
const (
	ErrMsgInternalServer = "An internal server error occurred"
	ErrMsgBadRequest     = "Invalid request format"
	ErrMsgUnauthorized   = "Authentication required"
)

// APIError is the error object of the response envelope
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// APIErrorResponse represents a structured error response
type APIErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// respondServiceError maps domain errors to HTTP responses.
func respondServiceError(c *fiber.Ctx, message string, err error) error {
	switch {
	case errors.Is(err, errs.ErrUnknownAppType):
		return RespondBadRequest(c, "Unknown app type", err.Error())
	case errors.Is(err, errs.ErrMissingField), errors.Is(err, errs.ErrInvalidSettings),
		errors.Is(err, errs.ErrWeakPassword):
		return RespondValidationError(c, message, err.Error())
	case errors.Is(err, errs.ErrUserExists):
		return RespondConflict(c, "User already exists", err.Error())
	case errors.Is(err, errs.ErrUserNotFound):
		return RespondNotFound(c, "User", err.Error())
	case errors.Is(err, errs.ErrInvalidCredentials):
		return RespondUnauthorized(c, "Invalid credentials", "")
	case errors.Is(err, errs.ErrTwoFactorRequired):
		return RespondError(c, fiber.StatusUnauthorized, ErrCodeTwoFactorRequired, "Two-factor code required", "")
	case errors.Is(err, errs.ErrInvalidTOTP):
		return RespondUnauthorized(c, "Invalid two-factor code", "")
	case errs.IsTransient(err):
		return RespondError(c, fiber.StatusBadGateway, ErrCodeUpstream, message, err.Error())
	}

	slog.ErrorContext(c.UserContext(), message, "error", err)
	return RespondInternalError(c, message, err.Error())
}
