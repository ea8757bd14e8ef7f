package middleware

import (
	"context"
	"log/slog"

	"github.com/delloop-lab/accreditor-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type presenceToucher interface {
	Touch(ctx context.Context, userID uuid.UUID) error
}

// Presence records the caller as active. Failures never fail the request.
func Presence(presence presenceToucher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if owner, ok := c.Locals("owner").(services.OwnerContext); ok {
			if err := presence.Touch(c.Context(), owner.UserID); err != nil {
				slog.Warn("presence update failed", "user_id", owner.UserID, "error", err)
			}
		}
		return c.Next()
	}
}
