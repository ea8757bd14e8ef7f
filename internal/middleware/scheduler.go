package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const SchedulerTokenHeader = "X-Scheduler-Token"

// SchedulerTokenRequired guards endpoints called by the scheduler binary.
// An empty configured token disables the endpoints.
func SchedulerTokenRequired(token string) fiber.Handler {
	expected := []byte(token)
	return func(c *fiber.Ctx) error {
		if len(expected) == 0 {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Scheduler access is not configured"})
		}
		provided := []byte(strings.TrimSpace(c.Get(SchedulerTokenHeader)))
		if subtle.ConstantTimeCompare(provided, expected) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid scheduler token"})
		}
		return c.Next()
	}
}
