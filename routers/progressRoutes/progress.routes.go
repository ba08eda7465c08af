package progressRoutes

import (
	"github.com/gofiber/fiber/v2"

	progressController "scholar/controllers/progress"
	"scholar/validators"
	progressValidator "scholar/validators/progress"
)

func SetupProgressRoutes(api fiber.Router, h *progressController.Controller, authenticate fiber.Handler) {
	progressGroup := api.Group("/progress", authenticate)

	progressGroup.Get("/", progressValidator.ListProgress(), h.List)
	progressGroup.Post("/", progressValidator.CreateProgress(), h.Create)
	progressGroup.Post("/complete/:lesson_id", validators.ParamID("lesson_id"), h.Complete)
	progressGroup.Post("/watch-time/:lesson_id", validators.ParamID("lesson_id"), progressValidator.WatchTime(), h.WatchTime)
	progressGroup.Get("/course/:course_id", validators.ParamID("course_id"), h.CourseProgress)

	progressGroup.Get("/:id", validators.ParamID("id"), h.Detail)
	progressGroup.Patch("/:id", validators.ParamID("id"), progressValidator.WatchTime(), h.Update)
	progressGroup.Delete("/:id", validators.ParamID("id"), h.Delete)
}
