package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// RequireRole rejects authenticated users whose role differs from role.
// It must run after Authenticate.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthenticated!", nil)
		}
		if user.Role != role {
			return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
		}
		return c.Next()
	}
}
