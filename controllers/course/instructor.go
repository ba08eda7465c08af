package courseController

import (
	"github.com/gofiber/fiber/v2"

	"scholar/middleware"
	"scholar/services"
	"scholar/validators"
	courseValidator "scholar/validators/course"
)

func (h *Controller) InstructorCourses(c *fiber.Ctx) error {
	page := services.NewPage(validators.Page(c))

	courses, total, err := h.svc.Catalog.InstructorCourses(c.UserContext(), middleware.CurrentUser(c).ID, page)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched.", listData(courses, total, page))
}

func (h *Controller) CreateCourse(c *fiber.Ctx) error {
	reqData := c.Locals(courseValidator.CourseCreateKey).(*courseValidator.CourseCreateRequest)

	created, err := h.svc.Catalog.CreateCourse(c.UserContext(), middleware.CurrentUser(c).ID, reqData.Input())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created.", created)
}

func (h *Controller) InstructorCourse(c *fiber.Ctx) error {
	detail, err := h.svc.Catalog.InstructorCourse(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched.", detail)
}

func (h *Controller) UpdateCourse(c *fiber.Ctx) error {
	reqData := c.Locals(courseValidator.CourseUpdateKey).(*courseValidator.CourseUpdateRequest)

	updated, err := h.svc.Catalog.UpdateCourse(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "id"), reqData.Input())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course updated.", updated)
}

func (h *Controller) DeleteCourse(c *fiber.Ctx) error {
	if err := h.svc.Catalog.DeleteCourse(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "id")); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course deleted.", nil)
}

func (h *Controller) Stats(c *fiber.Ctx) error {
	stats, err := h.svc.Dashboard.CourseStats(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course stats fetched.", stats)
}

func (h *Controller) Lessons(c *fiber.Ctx) error {
	lessons, err := h.svc.Catalog.Lessons(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "course_id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lessons fetched.", lessons)
}

func (h *Controller) CreateLesson(c *fiber.Ctx) error {
	reqData := c.Locals(courseValidator.LessonCreateKey).(*courseValidator.LessonCreateRequest)

	lesson, err := h.svc.Catalog.CreateLesson(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "course_id"), reqData.Input())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Lesson created.", lesson)
}

func (h *Controller) UpdateLesson(c *fiber.Ctx) error {
	reqData := c.Locals(courseValidator.LessonUpdateKey).(*courseValidator.LessonUpdateRequest)

	lesson, err := h.svc.Catalog.UpdateLesson(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "id"), reqData.Input())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson updated.", lesson)
}

func (h *Controller) DeleteLesson(c *fiber.Ctx) error {
	if err := h.svc.Catalog.DeleteLesson(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "id")); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson deleted.", nil)
}
