package courseRoutes

import (
	"github.com/gofiber/fiber/v2"

	courseController "scholar/controllers/course"
	"scholar/validators"
	courseValidator "scholar/validators/course"
)

// SetupCourseRoutes registers the public catalog and the instructor area.
// Static segments are registered before "/:id".
func SetupCourseRoutes(api fiber.Router, h *courseController.Controller, authenticate, instructor fiber.Handler) {
	courseGroup := api.Group("/courses")

	courseGroup.Get("/categories", h.Categories)
	courseGroup.Post("/categories", authenticate, instructor, courseValidator.Category(), h.CreateCategory)
	courseGroup.Get("/featured", h.Featured)
	courseGroup.Get("/category/:category_id", validators.ParamID("category_id"), validators.Paginate(), h.ByCategory)

	setupInstructorRoutes(courseGroup.Group("/instructor", authenticate, instructor), h)

	courseGroup.Get("/", courseValidator.CourseList(), h.List)
	courseGroup.Get("/:id", validators.ParamID("id"), h.Detail)
}
