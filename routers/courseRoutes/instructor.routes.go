package courseRoutes

import (
	"github.com/gofiber/fiber/v2"

	courseController "scholar/controllers/course"
	"scholar/validators"
	courseValidator "scholar/validators/course"
)

func setupInstructorRoutes(instructorGroup fiber.Router, h *courseController.Controller) {
	instructorGroup.Get("/", validators.Paginate(), h.InstructorCourses)
	instructorGroup.Post("/", courseValidator.CreateCourse(), h.CreateCourse)

	instructorGroup.Patch("/lessons/:id", validators.ParamID("id"), courseValidator.UpdateLesson(), h.UpdateLesson)
	instructorGroup.Delete("/lessons/:id", validators.ParamID("id"), h.DeleteLesson)

	instructorGroup.Get("/:id", validators.ParamID("id"), h.InstructorCourse)
	instructorGroup.Patch("/:id", validators.ParamID("id"), courseValidator.UpdateCourse(), h.UpdateCourse)
	instructorGroup.Delete("/:id", validators.ParamID("id"), h.DeleteCourse)
	instructorGroup.Get("/:id/stats", validators.ParamID("id"), h.Stats)

	instructorGroup.Get("/:course_id/lessons", validators.ParamID("course_id"), h.Lessons)
	instructorGroup.Post("/:course_id/lessons", validators.ParamID("course_id"), courseValidator.CreateLesson(), h.CreateLesson)
}
