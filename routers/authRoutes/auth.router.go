package authRoutes

import (
	"github.com/gofiber/fiber/v2"

	authController "scholar/controllers/auth"
	"scholar/validators"
	authValidator "scholar/validators/auth"
)

func SetupAuthRoutes(api fiber.Router, h *authController.Controller, authenticate fiber.Handler) {
	authGroup := api.Group("/auth")

	authGroup.Post("/register", authValidator.Register(), h.Register)
	authGroup.Post("/login", authValidator.Login(), h.Login)
	authGroup.Post("/refresh", authValidator.Refresh(), h.Refresh)
	authGroup.Post("/logout", authenticate, authValidator.Logout(), h.Logout)
	authGroup.Get("/profile", authenticate, h.Profile)
	authGroup.Patch("/profile", authenticate, authValidator.Profile(), h.UpdateProfile)
	authGroup.Post("/change-password", authenticate, authValidator.ChangePassword(), h.ChangePassword)
	authGroup.Get("/me", authenticate, h.Me)
	authGroup.Get("/login/history", authenticate, validators.Paginate(), h.LoginHistory)

	// identity provider callback; authenticated by the provider token itself
	api.Post("/sync-user", authValidator.SyncUser(), h.SyncUser)
}
