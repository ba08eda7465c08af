package certificateController

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

func (h *Controller) Issue(c *fiber.Ctx) error {
	cert, created, err := h.svc.Certificates.Issue(c.UserContext(), middleware.CurrentUser(c), validators.ID(c, "course_id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !created {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate already issued.", cert)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Certificate issued.", cert)
}

func (h *Controller) List(c *fiber.Ctx) error {
	certs, err := h.svc.Certificates.List(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched.", certs)
}

func (h *Controller) Detail(c *fiber.Ctx) error {
	cert, err := h.svc.Certificates.Get(c.UserContext(), middleware.CurrentUser(c).ID, validators.ID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate fetched.", cert)
}

// Verify is public: anyone holding a certificate number may check it.
func (h *Controller) Verify(c *fiber.Ctx) error {
	cert, err := h.svc.Certificates.Verify(c.UserContext(), c.Params("number"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate verified.", fiber.Map{
		"certificate_number": cert.CertificateNumber,
		"is_valid":           cert.IsValid,
		"issued_at":          cert.IssuedAt,
		"course":             cert.Course,
		"user_id":            cert.UserID,
	})
}
