package validators

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"scholar/middleware"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their json name
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Struct validates v and returns field -> message, or nil when valid.
func Struct(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"request": err.Error()}
	}
	out := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required!"
	case "email":
		return "Invalid email!"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters long!", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s!", fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters long!", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s!", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s!", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s!", fe.Param())
	case "eqfield":
		return fmt.Sprintf("Must match %s!", fe.Param())
	case "nefield":
		return fmt.Sprintf("Must differ from %s!", fe.Param())
	case "url":
		return "Invalid URL!"
	default:
		return "Invalid value!"
	}
}

// Body parses the JSON body into T, validates it and stores it under key.
func Body[T any](key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(T)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if errs := Struct(reqData); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals(key, reqData)
		return c.Next()
	}
}

// Query parses the query string into T, validates it and stores it under key.
func Query[T any](key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(T)
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}
		if errs := Struct(reqData); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals(key, reqData)
		return c.Next()
	}
}

// ParamID validates a positive integer route parameter and stores it as uint
// under the parameter's own name.
func ParamID(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Params(name))
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{name: "Must be a positive integer!"})
		}
		c.Locals(name, uint(id))
		return c.Next()
	}
}

// ID reads a parameter stored by ParamID.
func ID(c *fiber.Ctx, name string) uint {
	id, _ := c.Locals(name).(uint)
	return id
}

// Pagination is the shared page/limit query.
type Pagination struct {
	Page  int `query:"page" json:"page" validate:"gte=0"`
	Limit int `query:"limit" json:"limit" validate:"gte=0,lte=100"`
}

const PaginationKey = "validatedPagination"

func Paginate() fiber.Handler {
	return Query[Pagination](PaginationKey)
}

// Page reads the pagination stored by Paginate.
func Page(c *fiber.Ctx) (page, limit int) {
	if p, ok := c.Locals(PaginationKey).(*Pagination); ok {
		return p.Page, p.Limit
	}
	return 1, 0
}
