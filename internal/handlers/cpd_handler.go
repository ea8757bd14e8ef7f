package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/delloop-lab/accreditor-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CPDHandler struct {
	service cpdApplicationService
}

type cpdApplicationService interface {
	CreateEntry(ctx context.Context, owner services.OwnerContext, input repository.CPDInput, document *services.Upload) (*models.CPDEntry, error)
	GetEntry(ctx context.Context, userID, entryID uuid.UUID) (*models.CPDEntry, error)
	ListEntries(ctx context.Context, userID uuid.UUID, dates repository.DateRange) ([]models.CPDEntry, error)
	UpdateEntry(ctx context.Context, userID, entryID uuid.UUID, input repository.CPDInput, document *services.Upload) (*models.CPDEntry, error)
	DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) error
	Summary(ctx context.Context, userID uuid.UUID, dates repository.DateRange) (*models.CPDSummary, error)
}

func NewCPDHandler(service *services.CPDService) *CPDHandler {
	return &CPDHandler{service: service}
}

type cpdRequest struct {
	Title                    string   `json:"title" form:"title" validate:"required,max=300"`
	ActivityDate             string   `json:"activity_date" form:"activity_date" validate:"required,datetime=2006-01-02"`
	Hours                    float64  `json:"hours" form:"hours" validate:"gt=0"`
	CPDType                  string   `json:"cpd_type" form:"cpd_type" validate:"required"`
	LearningMethod           string   `json:"learning_method" form:"learning_method"`
	Provider                 string   `json:"provider" form:"provider"`
	Description              string   `json:"description" form:"description"`
	KeyLearnings             string   `json:"key_learnings" form:"key_learnings"`
	Application              string   `json:"application" form:"application"`
	ICFCompetencies          []string `json:"icf_competencies" form:"icf_competencies"`
	DocumentType             string   `json:"document_type" form:"document_type"`
	CoreCompetency           bool     `json:"core_competency" form:"core_competency"`
	ResourceDevelopment      bool     `json:"resource_development" form:"resource_development"`
	CoreCompetencyHours      float64  `json:"core_competency_hours" form:"core_competency_hours" validate:"gte=0"`
	ResourceDevelopmentHours float64  `json:"resource_development_hours" form:"resource_development_hours" validate:"gte=0"`
	IsICFCCE                 bool     `json:"is_icf_cce" form:"is_icf_cce"`
}

func (r cpdRequest) toInput() repository.CPDInput {
	return repository.CPDInput{
		Title:                    r.Title,
		ActivityDate:             r.ActivityDate,
		Hours:                    r.Hours,
		CPDType:                  r.CPDType,
		LearningMethod:           r.LearningMethod,
		Provider:                 r.Provider,
		Description:              r.Description,
		KeyLearnings:             r.KeyLearnings,
		Application:              r.Application,
		ICFCompetencies:          r.ICFCompetencies,
		DocumentType:             r.DocumentType,
		CoreCompetency:           r.CoreCompetency,
		ResourceDevelopment:      r.ResourceDevelopment,
		CoreCompetencyHours:      r.CoreCompetencyHours,
		ResourceDevelopmentHours: r.ResourceDevelopmentHours,
		IsICFCCE:                 r.IsICFCCE,
	}
}

func (h *CPDHandler) CreateEntry(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req cpdRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	document, closeFile, err := formUpload(c, "document")
	defer closeFile()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open file"})
	}

	entry, err := h.service.CreateEntry(c.Context(), owner, req.toInput(), document)
	if err != nil {
		return mapCPDError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"entry": entry})
}

func (h *CPDHandler) ListEntries(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	entries, err := h.service.ListEntries(c.Context(), owner.UserID, dateRangeQuery(c))
	if err != nil {
		return mapCPDError(c, err)
	}

	return c.JSON(fiber.Map{"entries": entries})
}

func (h *CPDHandler) Summary(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	summary, err := h.service.Summary(c.Context(), owner.UserID, dateRangeQuery(c))
	if err != nil {
		return mapCPDError(c, err)
	}

	return c.JSON(fiber.Map{"summary": summary})
}

func (h *CPDHandler) GetEntry(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	entryID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid CPD entry id"})
	}

	entry, err := h.service.GetEntry(c.Context(), owner.UserID, entryID)
	if err != nil {
		return mapCPDError(c, err)
	}

	return c.JSON(fiber.Map{"entry": entry})
}

func (h *CPDHandler) UpdateEntry(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	entryID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid CPD entry id"})
	}

	var req cpdRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	document, closeFile, err := formUpload(c, "document")
	defer closeFile()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open file"})
	}

	entry, err := h.service.UpdateEntry(c.Context(), owner.UserID, entryID, req.toInput(), document)
	if err != nil {
		return mapCPDError(c, err)
	}

	return c.JSON(fiber.Map{"entry": entry})
}

func (h *CPDHandler) DeleteEntry(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	entryID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid CPD entry id"})
	}

	if err := h.service.DeleteEntry(c.Context(), owner.UserID, entryID); err != nil {
		return mapCPDError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func dateRangeQuery(c *fiber.Ctx) repository.DateRange {
	return repository.DateRange{
		From: strings.TrimSpace(c.Query("from")),
		To:   strings.TrimSpace(c.Query("to")),
	}
}

func mapCPDError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrHoursMismatch):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrEntryLimitReached):
		return entryLimitResponse(c)
	case errors.Is(err, services.ErrUnsupportedFile):
		return c.Status(fiber.StatusUnsupportedMediaType).
			JSON(fiber.Map{"error": "document must be a pdf, doc, docx, jpg, png or txt file"})
	case errors.Is(err, services.ErrFileTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "document exceeds 10MB limit"})
	case errors.Is(err, services.ErrStorageUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).
			JSON(fiber.Map{"error": "Storage service is not configured"})
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "CPD entry not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process CPD request"})
	}
}
