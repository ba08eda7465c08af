package enrollmentController

import (
	"github.com/gofiber/fiber/v2"

	"scholar/middleware"
	"scholar/services"
	"scholar/validators"
)

type Controller struct {
	svc *services.Container
}

func New(svc *services.Container) *Controller {
	return &Controller{svc: svc}
}

// Enroll creates the enrollment and reconciles it at once, so progress kept
// from an earlier enrollment is reflected immediately.
func (h *Controller) Enroll(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := middleware.CurrentUser(c)

	enrollment, err := h.svc.Ledger.Enroll(ctx, user.ID, validators.ID(c, "course_id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if reconciled, err := h.svc.Reconciler.Reconcile(ctx, enrollment.ID); err != nil {
		middleware.RequestLogger(c).Warn("Reconcile after enroll failed", "enrollment_id", enrollment.ID, "error", err)
	} else {
		reconciled.Course = enrollment.Course
		enrollment = reconciled
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Successfully enrolled in course.", enrollment)
}

func (h *Controller) Unenroll(c *fiber.Ctx) error {
	if err := h.svc.Ledger.Unenroll(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "course_id")); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Successfully unenrolled from course.", nil)
}

func (h *Controller) Check(c *fiber.Ctx) error {
	enrolled, err := h.svc.Ledger.IsEnrolled(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "course_id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment checked.", fiber.Map{"is_enrolled": enrolled})
}

func (h *Controller) List(c *fiber.Ctx) error {
	page := services.NewPage(validators.Page(c))

	enrollments, total, err := h.svc.Ledger.List(c.UserContext(), middleware.CurrentUser(c).ID, page)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched.", fiber.Map{
		"total": total,
		"page":  page.Number,
		"limit": page.Limit,
		"items": enrollments,
	})
}

func (h *Controller) Detail(c *fiber.Ctx) error {
	enrollment, err := h.svc.Ledger.Get(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment fetched.", enrollment)
}

func (h *Controller) Delete(c *fiber.Ctx) error {
	if err := h.svc.Ledger.DeleteByID(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "id")); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment deleted.", nil)
}

// Reconcile recomputes one of the caller's enrollments from its progress rows.
func (h *Controller) Reconcile(c *fiber.Ctx) error {
	ctx := c.UserContext()

	enrollment, err := h.svc.Ledger.Get(ctx, middleware.CurrentUser(c).ID, validators.ID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	reconciled, err := h.svc.Reconciler.Reconcile(ctx, enrollment.ID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	reconciled.Course = enrollment.Course
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment progress recalculated.", reconciled)
}
