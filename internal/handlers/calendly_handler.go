package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
)

type CalendlyHandler struct {
	source calendlyEventSource
}

type calendlyEventSource interface {
	ListEvents(ctx context.Context, owner services.OwnerContext) ([]models.ExternalSession, error)
}

func NewCalendlyHandler(service *services.CalendlyService) *CalendlyHandler {
	return &CalendlyHandler{source: service}
}

func (h *CalendlyHandler) ListEvents(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	events, err := h.source.ListEvents(c.Context(), owner)
	if err != nil {
		if errors.Is(err, services.ErrCalendlyUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).
				JSON(fiber.Map{"error": "Calendly integration is not configured"})
		}
		slog.Warn("calendly events failed", "user_id", owner.UserID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to fetch Calendly events"})
	}

	return c.JSON(fiber.Map{"events": events})
}
