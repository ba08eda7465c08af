package certificateRoutes

import (
	"github.com/gofiber/fiber/v2"

	certificateController "scholar/controllers/certificate"
	"scholar/validators"
)

func SetupCertificateRoutes(api fiber.Router, h *certificateController.Controller, authenticate fiber.Handler) {
	certificateGroup := api.Group("/certificates")

	certificateGroup.Get("/verify/:number", h.Verify)

	certificateGroup.Get("/", authenticate, h.List)
	certificateGroup.Post("/course/:course_id", authenticate, validators.ParamID("course_id"), h.Issue)
	certificateGroup.Get("/:id", authenticate, validators.ParamID("id"), h.Detail)
}
