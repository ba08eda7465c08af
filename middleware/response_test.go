package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"scholar/apperr"
	"scholar/logger"
	"scholar/models"
)

type body struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func run(t *testing.T, app *fiber.App, path string) (int, body) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var b body
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&b))
	return resp.StatusCode, b
}

func TestErrorResponseMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"expired token", apperr.Wrap(apperr.ErrTokenExpired, errors.New("exp")), 401, "Unauthenticated!"},
		{"bad signature", apperr.ErrInvalidSignature, 401, "Unauthenticated!"},
		{"malformed header", apperr.ErrMalformedHeader, 401, "Unauthenticated!"},
		{"not enrolled", apperr.ErrNotEnrolled, 403, apperr.ErrNotEnrolled.Message},
		{"already enrolled", apperr.ErrAlreadyEnrolled, 400, apperr.ErrAlreadyEnrolled.Message},
		{"not found", apperr.NotFound("Lesson"), 404, "Lesson not found"},
		{"course unavailable", apperr.ErrCourseNotAvailable, 404, apperr.ErrCourseNotAvailable.Message},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), 503, "Request timed out, please retry!"},
		{"internal", errors.New("boom"), 500, "Failed to process your request!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return ErrorResponse(c, tc.err) })

			status, b := run(t, app, "/")
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.message, b.Message)
			assert.False(t, b.Status)
		})
	}
}

func TestAuthFailureLoggedWithCause(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	app := fiber.New()
	app.Use(Logging(log))
	app.Get("/", func(c *fiber.Ctx) error {
		return ErrorResponse(c, apperr.Wrap(apperr.ErrTokenExpired, errors.New("token is expired")))
	})

	status, b := run(t, app, "/")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Unauthenticated!", b.Message)

	entries := logs.FilterMessage("Authentication failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Contains(t, fmt.Sprint(entries[0].ContextMap()["error"]), "token is expired")
}

func TestErrorResponseValidationFields(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return ErrorResponse(c, apperr.ValidationField("watch_time_seconds", "must not be negative"))
	})

	status, b := run(t, app, "/")
	assert.Equal(t, fiber.StatusBadRequest, status)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(b.Data, &fields))
	assert.Equal(t, "must not be negative", fields["watch_time_seconds"])
}

func TestRequireRole(t *testing.T) {
	app := fiber.New()
	app.Get("/anon", RequireRole(models.RoleInstructor), func(c *fiber.Ctx) error { return c.SendStatus(204) })
	withUser := func(role string) fiber.Handler {
		return func(c *fiber.Ctx) error {
			setUser(c, &models.User{Role: role})
			return c.Next()
		}
	}
	app.Get("/student", withUser(models.RoleStudent), RequireRole(models.RoleInstructor), func(c *fiber.Ctx) error {
		return JsonResponse(c, 200, true, "ok", nil)
	})
	app.Get("/instructor", withUser(models.RoleInstructor), RequireRole(models.RoleInstructor), func(c *fiber.Ctx) error {
		return JsonResponse(c, 200, true, "ok", nil)
	})

	status, _ := run(t, app, "/anon")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, _ = run(t, app, "/student")
	assert.Equal(t, fiber.StatusForbidden, status)
	status, b := run(t, app, "/instructor")
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, b.Status)
}

func TestDeadlineBoundsUserContext(t *testing.T) {
	app := fiber.New()
	app.Use(Deadline(50 * time.Millisecond))
	app.Get("/", func(c *fiber.Ctx) error {
		deadline, ok := c.UserContext().Deadline()
		if !ok || time.Until(deadline) > 50*time.Millisecond {
			return JsonResponse(c, 500, false, "no deadline", nil)
		}
		return JsonResponse(c, 200, true, "ok", nil)
	})

	status, _ := run(t, app, "/")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestErrorHandlerWrapsFiberErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.NewNop())})
	app.Get("/", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })

	status, b := run(t, app, "/")
	assert.Equal(t, fiber.StatusTeapot, status)
	assert.Equal(t, "short and stout", b.Message)
}
