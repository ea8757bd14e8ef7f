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

const maxClientDocumentsPerRequest = 10

type ClientHandler struct {
	service clientApplicationService
}

type clientApplicationService interface {
	CreateClient(ctx context.Context, userID uuid.UUID, input repository.ClientInput, uploads []services.Upload) (*services.ClientCreation, error)
	ListClients(ctx context.Context, userID uuid.UUID) ([]models.Client, error)
	GetClient(ctx context.Context, userID, clientID uuid.UUID) (*models.Client, error)
	UpdateClient(ctx context.Context, userID, clientID uuid.UUID, input repository.ClientInput) (*models.Client, error)
	DeleteClient(ctx context.Context, userID, clientID uuid.UUID) error
	AddDocument(ctx context.Context, userID, clientID uuid.UUID, upload services.Upload) (*models.ClientDocument, error)
	ListDocuments(ctx context.Context, userID, clientID uuid.UUID) ([]models.ClientDocument, error)
	DeleteDocument(ctx context.Context, userID, docID uuid.UUID) error
	DocumentURL(ctx context.Context, userID, docID uuid.UUID) (string, error)
}

func NewClientHandler(service *services.ClientService) *ClientHandler {
	return &ClientHandler{service: service}
}

type clientRequest struct {
	Name  string `json:"name" form:"name" validate:"required,max=200"`
	Email string `json:"email" form:"email" validate:"omitempty,email"`
	Phone string `json:"phone" form:"phone" validate:"max=50"`
	Notes string `json:"notes" form:"notes" validate:"max=5000"`
}

// normalize trims the contact fields so validation sees what is stored.
func (r *clientRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r clientRequest) toInput() repository.ClientInput {
	return repository.ClientInput{
		Name:  r.Name,
		Email: r.Email,
		Phone: r.Phone,
		Notes: r.Notes,
	}
}

// CreateClient accepts JSON or a multipart form whose "documents" files are
// stored with the new client.
func (h *ClientHandler) CreateClient(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req clientRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	req.normalize()
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	var uploads []services.Upload
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid multipart form"})
		}
		headers := form.File["documents"]
		if len(headers) > maxClientDocumentsPerRequest {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "at most 10 documents can be uploaded at once"})
		}
		for _, header := range headers {
			upload, closeFile, err := openUpload(header)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open file"})
			}
			defer closeFile()
			uploads = append(uploads, *upload)
		}
	}

	creation, err := h.service.CreateClient(c.Context(), owner.UserID, req.toInput(), uploads)
	if err != nil {
		return mapClientError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(creation)
}

func (h *ClientHandler) ListClients(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	clients, err := h.service.ListClients(c.Context(), owner.UserID)
	if err != nil {
		return mapClientError(c, err)
	}

	return c.JSON(fiber.Map{"clients": clients})
}

func (h *ClientHandler) GetClient(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	clientID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
	}

	client, err := h.service.GetClient(c.Context(), owner.UserID, clientID)
	if err != nil {
		return mapClientError(c, err)
	}

	return c.JSON(fiber.Map{"client": client})
}

func (h *ClientHandler) UpdateClient(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	clientID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
	}

	var req clientRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	req.normalize()
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	client, err := h.service.UpdateClient(c.Context(), owner.UserID, clientID, req.toInput())
	if err != nil {
		return mapClientError(c, err)
	}

	return c.JSON(fiber.Map{"client": client})
}

func (h *ClientHandler) DeleteClient(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	clientID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
	}

	if err := h.service.DeleteClient(c.Context(), owner.UserID, clientID); err != nil {
		return mapClientError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ClientHandler) UploadDocument(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	clientID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
	}

	upload, closeFile, err := formUpload(c, "file")
	defer closeFile()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open file"})
	}
	if upload == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	if upload.Size <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is empty"})
	}

	doc, err := h.service.AddDocument(c.Context(), owner.UserID, clientID, *upload)
	if err != nil {
		return mapClientError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"document": doc})
}

func (h *ClientHandler) ListDocuments(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	clientID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid client id"})
	}

	docs, err := h.service.ListDocuments(c.Context(), owner.UserID, clientID)
	if err != nil {
		return mapClientError(c, err)
	}

	return c.JSON(fiber.Map{"documents": docs})
}

func (h *ClientHandler) DeleteDocument(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	docID, ok := parseIDParam(c, "docId")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid document id"})
	}

	if err := h.service.DeleteDocument(c.Context(), owner.UserID, docID); err != nil {
		return mapClientError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ClientHandler) DocumentURL(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	docID, ok := parseIDParam(c, "docId")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid document id"})
	}

	signedURL, err := h.service.DocumentURL(c.Context(), owner.UserID, docID)
	if err != nil {
		return mapClientError(c, err)
	}

	return c.JSON(fiber.Map{"download_url": signedURL, "expires_in_seconds": 3600})
}

func mapClientError(c *fiber.Ctx, err error) error {
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
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Client or document not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process client request"})
	}
}
