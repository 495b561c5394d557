package api

import (
	"github.com/gofiber/fiber/v2"
)

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RespondSuccess wraps data in the success envelope.
func RespondSuccess(c *fiber.Ctx, data any) error {
	return c.JSON(dataResponse{Success: true, Data: data})
}

// RespondCreated is RespondSuccess with 201, used when setup creates the account.
func RespondCreated(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(dataResponse{Success: true, Data: data})
}

// RespondMessage acknowledges an action that has nothing to return, such as a
// logout or a state reset.
func RespondMessage(c *fiber.Ctx, message string) error {
	return c.JSON(messageResponse{Success: true, Message: message})
}

// RespondError writes the error envelope with status.
func RespondError(c *fiber.Ctx, status int, code, message, details string) error {
	return c.Status(status).JSON(APIErrorResponse{
		Error: &APIError{Code: code, Message: message, Details: details},
	})
}

func RespondBadRequest(c *fiber.Ctx, message, details string) error {
	return RespondError(c, fiber.StatusBadRequest, ErrCodeBadRequest, message, details)
}

// RespondValidationError is a 400 for settings, passwords or history
// parameters that parse but are not acceptable.
func RespondValidationError(c *fiber.Ctx, message, details string) error {
	return RespondError(c, fiber.StatusBadRequest, ErrCodeValidation, message, details)
}

func RespondUnauthorized(c *fiber.Ctx, message, details string) error {
	return RespondError(c, fiber.StatusUnauthorized, ErrCodeUnauthorized, message, details)
}

// RespondNotFound reports a missing resource, e.g. "User not found".
func RespondNotFound(c *fiber.Ctx, resource, details string) error {
	return RespondError(c, fiber.StatusNotFound, ErrCodeNotFound, resource+" not found", details)
}

func RespondConflict(c *fiber.Ctx, message, details string) error {
	return RespondError(c, fiber.StatusConflict, ErrCodeConflict, message, details)
}

func RespondInternalError(c *fiber.Ctx, message, details string) error {
	return RespondError(c, fiber.StatusInternalServerError, ErrCodeInternalServer, message, details)
}

// RespondServiceUnavailable is used when an optional component (scheduler,
// stats, database) is not wired or not reachable.
func RespondServiceUnavailable(c *fiber.Ctx, message, details string) error {
	return RespondError(c, fiber.StatusServiceUnavailable, ErrCodeServiceUnavailable, message, details)
}
