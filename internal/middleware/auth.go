package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/delloop-lab/accreditor-sub000/internal/services"
	"github.com/delloop-lab/accreditor-sub000/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ownerLoader interface {
	Owner(ctx context.Context, userID uuid.UUID, email string) (services.OwnerContext, error)
}

// AuthRequired validates the identity-provider bearer token and stores the
// subject id and email in the request locals.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		tokenString := parts[1]
		claims, err := utils.ValidateToken(tokenString, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}
		userID, err := claims.UserID()
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", userID)
		c.Locals("email", claims.Email)

		return c.Next()
	}
}

// LoadOwner resolves the caller's profile, creating it on first use. Role
// and subscription always come from the stored profile, never the token.
func LoadOwner(profiles ownerLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uuid.UUID)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}
		email, _ := c.Locals("email").(string)

		owner, err := profiles.Owner(c.Context(), userID, email)
		if err != nil {
			slog.Error("failed to load profile", "user_id", userID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
		}

		c.Locals("owner", owner)
		c.Locals("role", owner.Role)

		return c.Next()
	}
}

func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := c.Locals("owner").(services.OwnerContext)
		if !ok || !owner.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
		}
		return c.Next()
	}
}
