package progressValidator

import (
	"github.com/gofiber/fiber/v2"

	"scholar/validators"
)

const (
	ProgressCreateKey = "validatedProgressCreate"
	WatchTimeKey      = "validatedWatchTime"
	ProgressListKey   = "validatedProgressList"
)

type ProgressCreateRequest struct {
	Lesson           uint `json:"lesson" validate:"required"`
	WatchTimeSeconds int  `json:"watch_time_seconds" validate:"gte=0"`
}

// WatchTimeRequest sets the watch time; a missing value means zero.
type WatchTimeRequest struct {
	WatchTimeSeconds int `json:"watch_time_seconds" validate:"gte=0"`
}

type ProgressListQuery struct {
	Course *uint `query:"course"`
}

func CreateProgress() fiber.Handler { return validators.Body[ProgressCreateRequest](ProgressCreateKey) }
func ListProgress() fiber.Handler   { return validators.Query[ProgressListQuery](ProgressListKey) }

// WatchTime tolerates an empty body.
func WatchTime() fiber.Handler {
	body := validators.Body[WatchTimeRequest](WatchTimeKey)
	return func(c *fiber.Ctx) error {
		if len(c.Body()) == 0 {
			c.Locals(WatchTimeKey, &WatchTimeRequest{})
			return c.Next()
		}
		return body(c)
	}
}
