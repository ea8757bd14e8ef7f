package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/delloop-lab/accreditor-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SessionHandler struct {
	service  sessionApplicationService
	exporter sessionExporter
}

type sessionApplicationService interface {
	CreateSession(ctx context.Context, owner services.OwnerContext, input repository.SessionInput) (*models.Session, error)
	GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.Session, error)
	ListSessions(ctx context.Context, owner services.OwnerContext, filter repository.SessionListFilter, includeExternal bool) (*models.SessionListing, error)
	UpdateSession(ctx context.Context, userID, sessionID uuid.UUID, input repository.SessionInput) (*models.Session, error)
	DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error
	BulkDelete(ctx context.Context, userID uuid.UUID, sessionIDs []uuid.UUID, deleteClients bool) (*services.BulkDeleteResult, error)
}

type sessionExporter interface {
	ExportICFLog(ctx context.Context, userID uuid.UUID, year int) (*services.Export, error)
}

func NewSessionHandler(service *services.SessionService, exporter *services.ExportService) *SessionHandler {
	return &SessionHandler{service: service, exporter: exporter}
}

type sessionRequest struct {
	ClientID          *string  `json:"client_id" validate:"omitempty,uuid"`
	ClientName        string   `json:"client_name" validate:"max=200"`
	Date              string   `json:"date" validate:"required,datetime=2006-01-02"`
	FinishDate        *string  `json:"finish_date" validate:"omitempty,datetime=2006-01-02"`
	Duration          int      `json:"duration" validate:"gt=0"`
	Types             []string `json:"types" validate:"required,min=1,dive,required"`
	PaymentType       string   `json:"payment_type" validate:"omitempty,oneof=paid proBono paidAndProBono"`
	PaymentAmount     *float64 `json:"payment_amount" validate:"omitempty,gte=0"`
	FocusArea         string   `json:"focus_area"`
	KeyOutcomes       string   `json:"key_outcomes"`
	ClientProgress    string   `json:"client_progress"`
	AdditionalNotes   string   `json:"additional_notes"`
	CoachingTools     []string `json:"coaching_tools"`
	ICFCompetencies   []string `json:"icf_competencies"`
	CalendlyBookingID *string  `json:"calendly_booking_id"`
}

func (r sessionRequest) toInput() (repository.SessionInput, error) {
	clientID, err := parseOptionalUUID(r.ClientID)
	if err != nil {
		return repository.SessionInput{}, err
	}
	return repository.SessionInput{
		ClientID:          clientID,
		ClientName:        r.ClientName,
		Date:              r.Date,
		FinishDate:        r.FinishDate,
		Duration:          r.Duration,
		Types:             r.Types,
		PaymentType:       r.PaymentType,
		PaymentAmount:     r.PaymentAmount,
		FocusArea:         r.FocusArea,
		KeyOutcomes:       r.KeyOutcomes,
		ClientProgress:    r.ClientProgress,
		AdditionalNotes:   r.AdditionalNotes,
		CoachingTools:     r.CoachingTools,
		ICFCompetencies:   r.ICFCompetencies,
		CalendlyBookingID: r.CalendlyBookingID,
	}, nil
}

type bulkDeleteSessionsRequest struct {
	SessionIDs    []string `json:"session_ids" validate:"required,min=1,max=500,dive,uuid"`
	DeleteClients bool     `json:"delete_clients"`
}

func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	input, msg := parseSessionRequest(c)
	if msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	session, err := h.service.CreateSession(c.Context(), owner, input)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	filter := repository.SessionListFilter{
		From: strings.TrimSpace(c.Query("from")),
		To:   strings.TrimSpace(c.Query("to")),
	}
	if (filter.From != "" && !isISODate(filter.From)) || (filter.To != "" && !isISODate(filter.To)) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "from and to must be YYYY-MM-DD dates"})
	}
	if raw := strings.TrimSpace(c.Query("client_id")); raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
		}
		filter.ClientID = &clientID
	}

	includeExternal, _ := strconv.ParseBool(c.Query("include_calendly", "false"))
	listing, err := h.service.ListSessions(c.Context(), owner, filter, includeExternal)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(listing)
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	session, err := h.service.GetSession(c.Context(), owner.UserID, sessionID)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) UpdateSession(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	input, msg := parseSessionRequest(c)
	if msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	session, err := h.service.UpdateSession(c.Context(), owner.UserID, sessionID, input)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	if err := h.service.DeleteSession(c.Context(), owner.UserID, sessionID); err != nil {
		return mapSessionError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionHandler) BulkDelete(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req bulkDeleteSessionsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}
	ids, err := parseUUIDs(req.SessionIDs)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	result, err := h.service.BulkDelete(c.Context(), owner.UserID, ids, req.DeleteClients)
	if err != nil {
		return mapSessionError(c, err)
	}

	return c.JSON(result)
}

func (h *SessionHandler) ExportICFLog(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	year, ok := parseYear(c, 0)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "year must be a four digit year"})
	}

	export, err := h.exporter.ExportICFLog(c.Context(), owner.UserID, year)
	if err != nil {
		return mapSessionError(c, err)
	}

	return sendExport(c, export)
}

func parseSessionRequest(c *fiber.Ctx) (repository.SessionInput, string) {
	var req sessionRequest
	if err := c.BodyParser(&req); err != nil {
		return repository.SessionInput{}, "Invalid request body"
	}
	if msg := validateRequest(req); msg != "" {
		return repository.SessionInput{}, msg
	}
	input, err := req.toInput()
	if err != nil {
		return repository.SessionInput{}, "client_id must be a valid id"
	}
	return input, ""
}

func mapSessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrEntryLimitReached):
		return entryLimitResponse(c)
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process session request"})
	}
}
