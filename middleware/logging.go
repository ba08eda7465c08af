package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"scholar/logger"
)

const loggerKey = "logger"

var nopLogger = logger.NewNop()

// Logging attaches a request-scoped logger and writes one line per request.
func Logging(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		reqLog := log.With("request_id", c.Locals("requestid"))
		c.Locals(loggerKey, reqLog)

		err := c.Next()

		status := c.Response().StatusCode()
		kv := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.IP(),
		}
		if userID, ok := c.Locals("userId").(uint); ok {
			kv = append(kv, "user_id", userID)
		}
		if err != nil {
			kv = append(kv, "error", err)
		}
		switch {
		case status >= 500:
			reqLog.Error("Request", kv...)
		case status >= 400:
			reqLog.Warn("Request", kv...)
		default:
			reqLog.Info("Request", kv...)
		}
		return err
	}
}

// RequestLogger returns the logger attached by Logging.
func RequestLogger(c *fiber.Ctx) *logger.Logger {
	if l, ok := c.Locals(loggerKey).(*logger.Logger); ok {
		return l
	}
	return nopLogger
}
