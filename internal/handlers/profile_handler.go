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

type ProfileHandler struct {
	profiles     profileApplicationService
	entitlements entitlementChecker
	progress     credentialProgressReader
}

type profileApplicationService interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID, email string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input repository.UpdateProfileInput) (*models.Profile, error)
}

type entitlementChecker interface {
	CanAddNewEntry(ctx context.Context, owner services.OwnerContext) (*services.Entitlement, error)
}

type credentialProgressReader interface {
	Progress(ctx context.Context, userID uuid.UUID, level string) (*services.CredentialProgress, error)
}

func NewProfileHandler(
	profiles *services.ProfileService,
	entitlements *services.EntitlementService,
	progress *services.ProgressService,
) *ProfileHandler {
	return &ProfileHandler{
		profiles:     profiles,
		entitlements: entitlements,
		progress:     progress,
	}
}

type updateProfileRequest struct {
	Name           *string `json:"name"`
	ICFLevel       *string `json:"icf_level"`
	Currency       *string `json:"currency"`
	Country        *string `json:"country"`
	CPDRenewalDate *string `json:"cpd_renewal_date"`
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	profile, err := h.profiles.GetOrCreate(c.Context(), owner.UserID, owner.Email)
	if err != nil {
		return mapProfileError(c, err)
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if msg := validateProfileUpdateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	input := repository.UpdateProfileInput{
		Name:           trimmedPtr(req.Name),
		ICFLevel:       req.ICFLevel,
		Currency:       req.Currency,
		CPDRenewalDate: trimmedPtr(req.CPDRenewalDate),
	}
	if req.Country != nil {
		country := strings.ToUpper(strings.TrimSpace(*req.Country))
		input.Country = &country
	}

	profile, err := h.profiles.UpdateProfile(c.Context(), owner.UserID, input)
	if err != nil {
		return mapProfileError(c, err)
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) GetUsage(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	entitlement, err := h.entitlements.CanAddNewEntry(c.Context(), owner)
	if err != nil {
		return mapProfileError(c, err)
	}

	return c.JSON(fiber.Map{"usage": entitlement})
}

func (h *ProfileHandler) GetProgress(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	profile, err := h.profiles.GetOrCreate(c.Context(), owner.UserID, owner.Email)
	if err != nil {
		return mapProfileError(c, err)
	}

	progress, err := h.progress.Progress(c.Context(), owner.UserID, profile.ICFLevel)
	if err != nil {
		return mapProfileError(c, err)
	}

	return c.JSON(fiber.Map{"progress": progress})
}

func mapProfileError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process profile request"})
	}
}
