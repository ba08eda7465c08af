package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"scholar/apperr"
	"scholar/logger"
)

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return JsonResponse(c, fiber.StatusBadRequest, false, "Validation failed!", errors)
}

// ErrorResponse renders a service error. Auth failures share one message so
// callers cannot tell an expired token from a forged one.
func ErrorResponse(c *fiber.Ctx, err error) error {
	if apperr.IsAuthFailure(err) {
		RequestLogger(c).Warn("Authentication failed", "kind", apperr.KindOf(err), "error", err)
		return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthenticated!", nil)
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		if appErr.Kind == apperr.KindValidation && len(appErr.Fields) > 0 {
			return ValidationErrorResponse(c, appErr.Fields)
		}
		return JsonResponse(c, apperr.Status(err), false, appErr.Message, nil)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		RequestLogger(c).Warn("Request deadline exceeded", "path", c.Path(), "error", err)
		return JsonResponse(c, fiber.StatusServiceUnavailable, false, "Request timed out, please retry!", nil)
	}

	RequestLogger(c).Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
}

// ErrorHandler is the app-wide fiber error handler for errors no handler rendered.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return JsonResponse(c, fiberErr.Code, false, fiberErr.Message, nil)
		}
		log.Error("Unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
		return JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}
}
