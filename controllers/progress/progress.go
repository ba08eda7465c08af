package progressController

import (
	"github.com/gofiber/fiber/v2"

	"scholar/middleware"
	"scholar/services"
	"scholar/validators"
	progressValidator "scholar/validators/progress"
)

type Controller struct {
	svc *services.Container
}

func New(svc *services.Container) *Controller {
	return &Controller{svc: svc}
}

func (h *Controller) List(c *fiber.Ctx) error {
	query := c.Locals(progressValidator.ProgressListKey).(*progressValidator.ProgressListQuery)

	rows, err := h.svc.Tracker.List(c.UserContext(), middleware.CurrentUser(c).ID, query.Course)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched.", rows)
}

func (h *Controller) Create(c *fiber.Ctx) error {
	reqData := c.Locals(progressValidator.ProgressCreateKey).(*progressValidator.ProgressCreateRequest)

	row, err := h.svc.Tracker.RecordProgress(c.UserContext(), middleware.CurrentUser(c).ID, reqData.Lesson, reqData.WatchTimeSeconds)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Progress saved.", row)
}

func (h *Controller) Detail(c *fiber.Ctx) error {
	row, err := h.svc.Tracker.Get(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched.", row)
}

func (h *Controller) Update(c *fiber.Ctx) error {
	reqData := c.Locals(progressValidator.WatchTimeKey).(*progressValidator.WatchTimeRequest)

	row, err := h.svc.Tracker.UpdateByID(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "id"), reqData.WatchTimeSeconds)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress updated.", row)
}

func (h *Controller) Delete(c *fiber.Ctx) error {
	if err := h.svc.Tracker.Delete(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "id")); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress deleted.", nil)
}

func (h *Controller) Complete(c *fiber.Ctx) error {
	row, err := h.svc.Tracker.MarkComplete(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "lesson_id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson marked as complete.", row)
}

func (h *Controller) WatchTime(c *fiber.Ctx) error {
	reqData := c.Locals(progressValidator.WatchTimeKey).(*progressValidator.WatchTimeRequest)

	row, err := h.svc.Tracker.RecordProgress(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "lesson_id"), reqData.WatchTimeSeconds)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Watch time updated.", row)
}

func (h *Controller) CourseProgress(c *fiber.Ctx) error {
	report, err := h.svc.Tracker.CourseProgress(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "course_id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course progress fetched.", report)
}
