package courseController

import (
	"github.com/gofiber/fiber/v2"

	"scholar/middleware"
	"scholar/models/course"
	"scholar/services"
	"scholar/validators"
	courseValidator "scholar/validators/course"
)

type Controller struct {
	svc *services.Container
}

func New(svc *services.Container) *Controller {
	return &Controller{svc: svc}
}

func listData(items interface{}, total int64, page services.Page) fiber.Map {
	return fiber.Map{
		"total": total,
		"page":  page.Number,
		"limit": page.Limit,
		"items": items,
	}
}

func (h *Controller) Categories(c *fiber.Ctx) error {
	categories, err := h.svc.Catalog.Categories(c.UserContext())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Categories fetched.", categories)
}

func (h *Controller) CreateCategory(c *fiber.Ctx) error {
	reqData := c.Locals(courseValidator.CategoryKey).(*courseValidator.CategoryRequest)

	category := &course.Category{Name: reqData.Name, Description: reqData.Description, Icon: reqData.Icon}
	if err := h.svc.Catalog.CreateCategory(c.UserContext(), category); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Category created.", category)
}

func (h *Controller) List(c *fiber.Ctx) error {
	query := c.Locals(courseValidator.CourseListKey).(*courseValidator.CourseListQuery)
	filter := query.Filter()

	courses, total, err := h.svc.Catalog.Published(c.UserContext(), filter)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched.", listData(courses, total, filter.Page))
}

func (h *Controller) Featured(c *fiber.Ctx) error {
	courses, err := h.svc.Catalog.Featured(c.UserContext())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Featured courses fetched.", courses)
}

func (h *Controller) ByCategory(c *fiber.Ctx) error {
	categoryID := validators.ID(c, "category_id")
	filter := services.CourseFilter{CategoryID: &categoryID, Page: services.NewPage(validators.Page(c))}

	courses, total, err := h.svc.Catalog.Published(c.UserContext(), filter)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched.", listData(courses, total, filter.Page))
}

func (h *Controller) Detail(c *fiber.Ctx) error {
	detail, err := h.svc.Catalog.PublishedDetail(c.UserContext(), validators.ID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course fetched.", detail)
}
