package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/delloop-lab/accreditor-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ImportHandler struct {
	service  importApplicationService
	maxBytes int64
}

type importApplicationService interface {
	ImportSessions(ctx context.Context, owner services.OwnerContext, filename string, data []byte) (*services.ImportResult, error)
}

func NewImportHandler(service *services.ImportService, maxBytes int64) *ImportHandler {
	return &ImportHandler{service: service, maxBytes: maxBytes}
}

func (h *ImportHandler) ImportSessions(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	if fileHeader.Size <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is empty"})
	}
	if fileHeader.Size > h.maxBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).
			JSON(fiber.Map{"error": fmt.Sprintf("file exceeds %dMB limit", h.maxBytes>>20)})
	}

	data, err := readFormFile(fileHeader, h.maxBytes)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read file"})
	}
	if int64(len(data)) > h.maxBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).
			JSON(fiber.Map{"error": fmt.Sprintf("file exceeds %dMB limit", h.maxBytes>>20)})
	}

	result, err := h.service.ImportSessions(c.Context(), owner, fileHeader.Filename, data)
	if err != nil {
		return mapImportError(c, err)
	}

	return c.JSON(result)
}

// mapImportError passes storage failures through so the caller sees the
// provider message.
func mapImportError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUnsupportedFile):
		return c.Status(fiber.StatusUnsupportedMediaType).
			JSON(fiber.Map{"error": "file must be a .xlsx, .xls or .csv spreadsheet"})
	case errors.Is(err, services.ErrTooManyRows):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrEntryLimitReached):
		return entryLimitResponse(c)
	default:
		slog.Error("session import failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Import failed: " + err.Error()})
	}
}

func entryLimitResponse(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "Free plan limit reached. Upgrade your subscription to add more entries.",
		"code":  "entry_limit_reached",
	})
}
