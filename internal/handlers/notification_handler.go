package handlers

import (
	"context"
	"errors"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	service notificationApplicationService
}

type notificationApplicationService interface {
	GetPreferences(ctx context.Context, userID uuid.UUID) (*models.NotificationPreferences, error)
	UpdateEmailPreferences(ctx context.Context, userID uuid.UUID, types []string) (*models.NotificationPreferences, error)
	UpdatePushPreferences(ctx context.Context, userID uuid.UUID, types []string) (*models.NotificationPreferences, error)
	Subscribe(ctx context.Context, userID uuid.UUID, input services.SubscribeInput) (*models.PushSubscription, error)
	Unsubscribe(ctx context.Context, userID uuid.UUID) error
	SendEmail(ctx context.Context, userID uuid.UUID, input services.NotificationInput) error
	SendPush(ctx context.Context, userID uuid.UUID, input services.NotificationInput) error
	VAPIDPublicKey() (string, error)
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

type notificationTypesRequest struct {
	Types []string `json:"types" validate:"max=10"`
}

type pushSubscriptionRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
	NotificationTypes []string `json:"notification_types"`
}

type sendNotificationRequest struct {
	NotificationType string `json:"notificationType" validate:"required"`
	Title            string `json:"title" validate:"required,max=200"`
	Body             string `json:"body" validate:"required,max=2000"`
	URL              string `json:"url" validate:"omitempty,max=2000"`
}

func (r sendNotificationRequest) toInput() services.NotificationInput {
	return services.NotificationInput{
		Type:  r.NotificationType,
		Title: r.Title,
		Body:  r.Body,
		URL:   r.URL,
	}
}

func (h *NotificationHandler) GetPreferences(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	prefs, err := h.service.GetPreferences(c.Context(), owner.UserID)
	if err != nil {
		return mapNotificationError(c, err)
	}

	return c.JSON(fiber.Map{"preferences": prefs})
}

func (h *NotificationHandler) UpdateEmailPreferences(c *fiber.Ctx) error {
	return h.updatePreferences(c, "email")
}

func (h *NotificationHandler) UpdatePushPreferences(c *fiber.Ctx) error {
	return h.updatePreferences(c, "push")
}

func (h *NotificationHandler) updatePreferences(c *fiber.Ctx, channel string) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req notificationTypesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}
	if msg := validateNotificationTypes("types", req.Types); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	var (
		prefs *models.NotificationPreferences
		err   error
	)
	if channel == "push" {
		prefs, err = h.service.UpdatePushPreferences(c.Context(), owner.UserID, req.Types)
	} else {
		prefs, err = h.service.UpdateEmailPreferences(c.Context(), owner.UserID, req.Types)
	}
	if err != nil {
		return mapNotificationError(c, err)
	}

	return c.JSON(fiber.Map{"preferences": prefs})
}

func (h *NotificationHandler) Subscribe(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req pushSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}
	if msg := validateNotificationTypes("notification_types", req.NotificationTypes); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	sub, err := h.service.Subscribe(c.Context(), owner.UserID, services.SubscribeInput{
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
		Types:    req.NotificationTypes,
	})
	if err != nil {
		return mapNotificationError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"subscription": sub})
}

func (h *NotificationHandler) Unsubscribe(c *fiber.Ctx) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if err := h.service.Unsubscribe(c.Context(), owner.UserID); err != nil {
		return mapNotificationError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *NotificationHandler) SendEmail(c *fiber.Ctx) error {
	return h.send(c, "email")
}

func (h *NotificationHandler) SendPush(c *fiber.Ctx) error {
	return h.send(c, "push")
}

func (h *NotificationHandler) send(c *fiber.Ctx, channel string) error {
	owner, ok := currentOwner(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req sendNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if msg := validateRequest(req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}
	if msg := validateNotificationTypes("notificationType", []string{req.NotificationType}); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	var err error
	if channel == "push" {
		err = h.service.SendPush(c.Context(), owner.UserID, req.toInput())
	} else {
		err = h.service.SendEmail(c.Context(), owner.UserID, req.toInput())
	}
	if err != nil {
		return mapNotificationError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *NotificationHandler) VAPIDPublicKey(c *fiber.Ctx) error {
	key, err := h.service.VAPIDPublicKey()
	if err != nil {
		return mapNotificationError(c, err)
	}
	return c.JSON(fiber.Map{"public_key": key})
}

func mapNotificationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotificationDisabled):
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "This notification type is not enabled in your preferences"})
	case errors.Is(err, services.ErrPushNotSubscribed):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No push subscription registered"})
	case errors.Is(err, services.ErrSubscriptionGone):
		return c.Status(fiber.StatusGone).
			JSON(fiber.Map{"error": "Push subscription has expired, please subscribe again"})
	case errors.Is(err, services.ErrEmailUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Email service is not configured"})
	case errors.Is(err, services.ErrPushUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Push service is not configured"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process notification request"})
	}
}
