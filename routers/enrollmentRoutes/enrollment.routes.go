package enrollmentRoutes

import (
	"github.com/gofiber/fiber/v2"

	enrollmentController "scholar/controllers/enrollment"
	"scholar/validators"
)

func SetupEnrollmentRoutes(api fiber.Router, h *enrollmentController.Controller, authenticate fiber.Handler) {
	enrollmentGroup := api.Group("/enrollments", authenticate)

	enrollmentGroup.Get("/", validators.Paginate(), h.List)
	enrollmentGroup.Post("/enroll/:course_id", validators.ParamID("course_id"), h.Enroll)
	enrollmentGroup.Delete("/unenroll/:course_id", validators.ParamID("course_id"), h.Unenroll)
	enrollmentGroup.Get("/check/:course_id", validators.ParamID("course_id"), h.Check)

	enrollmentGroup.Get("/:id", validators.ParamID("id"), h.Detail)
	enrollmentGroup.Delete("/:id", validators.ParamID("id"), h.Delete)
	enrollmentGroup.Post("/:id/reconcile", validators.ParamID("id"), h.Reconcile)
}
