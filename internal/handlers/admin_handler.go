package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/delloop-lab/accreditor-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AdminHandler struct {
	service adminApplicationService
	now     func() time.Time
}

type adminApplicationService interface {
	Dashboard(ctx context.Context) (*models.DashboardStats, error)
	ListUsers(ctx context.Context, filter repository.UserListFilter) ([]models.AdminUserSummary, int, error)
	UpdateSubscription(ctx context.Context, userID uuid.UUID, update services.SubscriptionUpdate) (*models.Profile, error)
	UpdateRole(ctx context.Context, actor services.OwnerContext, userID uuid.UUID, role string) (*models.Profile, error)
	SendReminders(ctx context.Context, sendToAll bool, userIDs []uuid.UUID) (*models.DeliveryReport, error)
	SendCustomReminders(ctx context.Context, email services.CustomEmail) (*models.DeliveryReport, error)
	ScheduleEmail(ctx context.Context, actorID uuid.UUID, email services.CustomEmail, scheduledFor time.Time) (*models.ScheduledEmail, error)
	ListScheduledEmails(ctx context.Context, status string) ([]models.ScheduledEmail, error)
	DeleteScheduledEmail(ctx context.Context, id uuid.UUID) error
	ProcessScheduledEmails(ctx context.Context) (*services.ProcessResult, error)
	UserReport(ctx context.Context, userID uuid.UUID, year int) (*services.Export, error)
}

func NewAdminHandler(service *services.AdminService) *AdminHandler {
	return &AdminHandler{service: service, now: time.Now}
}

type updateSubscriptionRequest struct {
	Plan          string `json:"subscription_plan" validate:"max=50"`
	Status        string `json:"subscription_status" validate:"omitempty,oneof=active trialing past_due canceled inactive"`
	BillingPeriod string `json:"billing_period" validate:"omitempty,oneof=monthly yearly"`
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type sendRemindersRequest struct {
	SendToAll bool     `json:"send_to_all"`
	UserIDs   []string `json:"user_ids" validate:"dive,uuid"`
}

type customEmailRequest struct {
	Subject          string   `json:"subject" validate:"required,max=200"`
	Content          string   `json:"email_content" validate:"required"`
	RecipientType    string   `json:"recipient_type" validate:"required,oneof=all selected"`
	RecipientUserIDs []string `json:"recipient_user_ids" validate:"dive,uuid"`
}

type scheduleEmailRequest struct {
	customEmailRequest
	ScheduledFor string `json:"scheduled_for" validate:"required"`
}

func (r customEmailRequest) toCustomEmail() (services.CustomEmail, error) {
	ids, err := parseUUIDs(r.RecipientUserIDs)
	if err != nil {
		return services.CustomEmail{}, err
	}
	return services.CustomEmail{
		Subject:          r.Subject,
		Content:          r.Content,
		RecipientType:    r.RecipientType,
		RecipientUserIDs: ids,
	}, nil
}

func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.service.Dashboard(c.Context())
	if err != nil {
		return mapAdminError(c, err)
	}
	return c.JSON(fiber.Map{"stats": stats})
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, limit, msg := parsePagination(c)
	if msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	users, total, err := h.service.ListUsers(c.Context(), repository.UserListFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return mapAdminError(c, err)
	}

	return c.JSON(fiber.Map{
		"users":      users,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *AdminHandler) UpdateSubscription(c *fiber.Ctx) error {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	var req updateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	profile, err := h.service.UpdateSubscription(c.Context(), userID, services.SubscriptionUpdate{
		Plan:          strings.TrimSpace(req.Plan),
		Status:        req.Status,
		BillingPeriod: req.BillingPeriod,
	})
	if err != nil {
		return mapAdminError(c, err)
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *AdminHandler) UpdateRole(c *fiber.Ctx) error {
	actor, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	var req updateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}
	if msg := validateRole(req.Role); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	profile, err := h.service.UpdateRole(c.Context(), actor, userID, req.Role)
	if err != nil {
		return mapAdminError(c, err)
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *AdminHandler) SendReminders(c *fiber.Ctx) error {
	var req sendRemindersRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}
	if !req.SendToAll && len(req.UserIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_ids is required unless send_to_all is set"})
	}
	ids, err := parseUUIDs(req.UserIDs)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	report, err := h.service.SendReminders(c.Context(), req.SendToAll, ids)
	if err != nil {
		return mapAdminError(c, err)
	}

	return c.JSON(report)
}

func (h *AdminHandler) SendCustomReminders(c *fiber.Ctx) error {
	var req customEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}
	email, err := req.toCustomEmail()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	report, err := h.service.SendCustomReminders(c.Context(), email)
	if err != nil {
		return mapAdminError(c, err)
	}

	return c.JSON(report)
}

func (h *AdminHandler) ScheduleEmail(c *fiber.Ctx) error {
	actor, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req scheduleEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	scheduledFor, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ScheduledFor))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scheduled_for must be a valid RFC3339 timestamp"})
	}
	if !scheduledFor.After(h.now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scheduled_for must be in the future"})
	}
	email, err := req.toCustomEmail()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	scheduled, err := h.service.ScheduleEmail(c.Context(), actor.UserID, email, scheduledFor)
	if err != nil {
		return mapAdminError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"scheduled_email": scheduled})
}

func (h *AdminHandler) ListScheduledEmails(c *fiber.Ctx) error {
	emails, err := h.service.ListScheduledEmails(c.Context(), c.Query("status"))
	if err != nil {
		return mapAdminError(c, err)
	}
	return c.JSON(fiber.Map{"scheduled_emails": emails})
}

func (h *AdminHandler) DeleteScheduledEmail(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid scheduled email id"})
	}

	if err := h.service.DeleteScheduledEmail(c.Context(), id); err != nil {
		return mapAdminError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminHandler) ProcessScheduledEmails(c *fiber.Ctx) error {
	result, err := h.service.ProcessScheduledEmails(c.Context())
	if err != nil {
		return mapAdminError(c, err)
	}
	return c.JSON(result)
}

func (h *AdminHandler) UserReport(c *fiber.Ctx) error {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	year, ok := parseYear(c, h.now().Year())
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "year must be a four digit year"})
	}

	report, err := h.service.UserReport(c.Context(), userID, year)
	if err != nil {
		return mapAdminError(c, err)
	}

	return sendExport(c, report)
}

func mapAdminError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You cannot remove your own super admin role"})
	case errors.Is(err, services.ErrEmailUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Email service is not configured"})
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User or scheduled email not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process admin request"})
	}
}
