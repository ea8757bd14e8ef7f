package handlers

import (
	"context"
	"errors"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/delloop-lab/accreditor-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type MentoringHandler struct {
	service mentoringApplicationService
}

type mentoringApplicationService interface {
	CreateSession(ctx context.Context, userID uuid.UUID, input repository.MentoringInput, file *services.Upload) (*models.MentoringSession, error)
	GetSession(ctx context.Context, userID, id uuid.UUID) (*models.MentoringSession, error)
	ListSessions(ctx context.Context, userID uuid.UUID, sessionType string) ([]models.MentoringSession, error)
	UpdateSession(ctx context.Context, userID, id uuid.UUID, input repository.MentoringInput, file *services.Upload) (*models.MentoringSession, error)
	DeleteSession(ctx context.Context, userID, id uuid.UUID) error
}

func NewMentoringHandler(service *services.MentoringService) *MentoringHandler {
	return &MentoringHandler{service: service}
}

type mentoringRequest struct {
	SessionType         string `json:"session_type" form:"session_type" validate:"required"`
	Date                string `json:"date" form:"date" validate:"required,datetime=2006-01-02"`
	Duration            int    `json:"duration" form:"duration" validate:"gt=0"`
	ProviderName        string `json:"provider_name" form:"provider_name" validate:"max=200"`
	CredentialLevel     string `json:"credential_level" form:"credential_level"`
	DeliveryType        string `json:"delivery_type" form:"delivery_type"`
	FocusArea           string `json:"focus_area" form:"focus_area"`
	Notes               string `json:"notes" form:"notes"`
	IsFormalSupervision bool   `json:"is_formal_supervision" form:"is_formal_supervision"`
}

func (r mentoringRequest) toInput() repository.MentoringInput {
	return repository.MentoringInput{
		SessionType:         r.SessionType,
		Date:                r.Date,
		Duration:            r.Duration,
		ProviderName:        r.ProviderName,
		CredentialLevel:     r.CredentialLevel,
		DeliveryType:        r.DeliveryType,
		FocusArea:           r.FocusArea,
		Notes:               r.Notes,
		IsFormalSupervision: r.IsFormalSupervision,
	}
}

func (h *MentoringHandler) CreateSession(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req mentoringRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	file, closeFile, err := formUpload(c, "file")
	defer closeFile()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open file"})
	}

	record, err := h.service.CreateSession(c.Context(), owner.UserID, req.toInput(), file)
	if err != nil {
		return mapMentoringError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": record})
}

func (h *MentoringHandler) ListSessions(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	records, err := h.service.ListSessions(c.Context(), owner.UserID, c.Query("type"))
	if err != nil {
		return mapMentoringError(c, err)
	}

	return c.JSON(fiber.Map{"sessions": records})
}

func (h *MentoringHandler) GetSession(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid mentoring session id"})
	}

	record, err := h.service.GetSession(c.Context(), owner.UserID, id)
	if err != nil {
		return mapMentoringError(c, err)
	}

	return c.JSON(fiber.Map{"session": record})
}

func (h *MentoringHandler) UpdateSession(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid mentoring session id"})
	}

	var req mentoringRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	file, closeFile, err := formUpload(c, "file")
	defer closeFile()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open file"})
	}

	record, err := h.service.UpdateSession(c.Context(), owner.UserID, id, req.toInput(), file)
	if err != nil {
		return mapMentoringError(c, err)
	}

	return c.JSON(fiber.Map{"session": record})
}

func (h *MentoringHandler) DeleteSession(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid mentoring session id"})
	}

	if err := h.service.DeleteSession(c.Context(), owner.UserID, id); err != nil {
		return mapMentoringError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func mapMentoringError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrUnsupportedFile):
		return c.Status(fiber.StatusUnsupportedMediaType).
			JSON(fiber.Map{"error": "file must be a pdf, doc, docx, jpg, png or txt file"})
	case errors.Is(err, services.ErrFileTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "file exceeds 10MB limit"})
	case errors.Is(err, services.ErrStorageUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).
			JSON(fiber.Map{"error": "Storage service is not configured"})
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Mentoring session not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process mentoring request"})
	}
}
