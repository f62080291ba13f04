package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// QueryLimit reads ?limit=, falling back to def when missing or invalid and
// capping at max.
func QueryLimit(c *fiber.Ctx, def, max int) int {
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(def)))
	if err != nil || limit < 1 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
