package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type notificationProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateEmailNotificationTypes(ctx context.Context, id uuid.UUID, types []string) error
	UpdatePushNotificationTypes(ctx context.Context, id uuid.UUID, types []string) error
}

type pushSubscriptionStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.PushSubscription, error)
	Upsert(ctx context.Context, sub *models.PushSubscription) error
	UpdateTypes(ctx context.Context, userID uuid.UUID, types []string) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

type NotificationService struct {
	profiles       notificationProfileStore
	subscriptions  pushSubscriptionStore
	email          EmailSender
	push           PushSender
	vapidPublicKey string
}

func NewNotificationService(
	profiles notificationProfileStore,
	subscriptions pushSubscriptionStore,
	email EmailSender,
	push PushSender,
	vapidPublicKey string,
) *NotificationService {
	return &NotificationService{
		profiles:       profiles,
		subscriptions:  subscriptions,
		email:          email,
		push:           push,
		vapidPublicKey: vapidPublicKey,
	}
}

type SubscribeInput struct {
	Endpoint string
	P256dh   string
	Auth     string
	Types    []string
}

type NotificationInput struct {
	Type  string
	Title string
	Body  string
	URL   string
}

// GetPreferences returns the stored lists filtered to known types. Lists that
// held stale values are written back cleaned; a failed write-back is logged.
func (s *NotificationService) GetPreferences(ctx context.Context, userID uuid.UUID) (*models.NotificationPreferences, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	emailTypes, pruned := models.FilterNotificationTypes(profile.EmailNotificationTypes)
	if pruned {
		if err := s.profiles.UpdateEmailNotificationTypes(ctx, userID, emailTypes); err != nil {
			slog.Warn("failed to prune email notification types", "user_id", userID, "error", err)
		}
	}

	prefs := &models.NotificationPreferences{
		PushTypes:  []string{},
		EmailTypes: emailTypes,
		Available:  models.NotificationTypes,
	}

	sub, err := s.subscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		pushTypes, pruned := models.FilterNotificationTypes(sub.NotificationTypes)
		if pruned {
			if err := s.subscriptions.UpdateTypes(ctx, userID, pushTypes); err != nil {
				slog.Warn("failed to prune push notification types", "user_id", userID, "error", err)
			}
		}
		prefs.PushTypes = pushTypes
		prefs.PushEnabled = len(pushTypes) > 0
	}
	return prefs, nil
}

func (s *NotificationService) UpdateEmailPreferences(ctx context.Context, userID uuid.UUID, types []string) (*models.NotificationPreferences, error) {
	cleaned, err := validateNotificationTypes(types)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.UpdateEmailNotificationTypes(ctx, userID, cleaned); err != nil {
		return nil, err
	}
	return s.GetPreferences(ctx, userID)
}

// UpdatePushPreferences stores the list on the profile and, when the user has
// a browser subscription, on the subscription used for delivery.
func (s *NotificationService) UpdatePushPreferences(ctx context.Context, userID uuid.UUID, types []string) (*models.NotificationPreferences, error) {
	cleaned, err := validateNotificationTypes(types)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.UpdatePushNotificationTypes(ctx, userID, cleaned); err != nil {
		return nil, err
	}
	if err := s.subscriptions.UpdateTypes(ctx, userID, cleaned); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return s.GetPreferences(ctx, userID)
}

func (s *NotificationService) Subscribe(ctx context.Context, userID uuid.UUID, input SubscribeInput) (*models.PushSubscription, error) {
	endpoint := strings.TrimSpace(input.Endpoint)
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(input.P256dh) == "" || strings.TrimSpace(input.Auth) == "" {
		return nil, ErrInvalidInput
	}

	types := input.Types
	if len(types) == 0 {
		profile, err := s.profiles.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		types, _ = models.FilterNotificationTypes(profile.PushNotificationTypes)
	} else if types, err = validateNotificationTypes(types); err != nil {
		return nil, err
	}

	sub := &models.PushSubscription{
		UserID:            userID,
		Endpoint:          endpoint,
		P256dh:            strings.TrimSpace(input.P256dh),
		Auth:              strings.TrimSpace(input.Auth),
		NotificationTypes: types,
	}
	if err := s.subscriptions.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.profiles.UpdatePushNotificationTypes(ctx, userID, types); err != nil {
		slog.Warn("failed to mirror push notification types", "user_id", userID, "error", err)
	}
	return sub, nil
}

func (s *NotificationService) Unsubscribe(ctx context.Context, userID uuid.UUID) error {
	return s.subscriptions.DeleteByUserID(ctx, userID)
}

// SendEmail delivers a notification to the caller's own address, provided
// the caller opted in to that notification type.
func (s *NotificationService) SendEmail(ctx context.Context, userID uuid.UUID, input NotificationInput) error {
	if s.email == nil {
		return ErrEmailUnavailable
	}
	if err := validateNotificationInput(input); err != nil {
		return err
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	enabled, _ := models.FilterNotificationTypes(profile.EmailNotificationTypes)
	if !containsString(enabled, input.Type) {
		return ErrNotificationDisabled
	}

	return s.email.Send(ctx, EmailMessage{
		To:      profile.Email,
		Subject: input.Title,
		HTML:    renderNotificationEmail(profile.Name, input.Title, input.Body),
	})
}

// SendPush delivers to the caller's browser subscription. A subscription the
// push service reports as gone is removed.
func (s *NotificationService) SendPush(ctx context.Context, userID uuid.UUID, input NotificationInput) error {
	if s.push == nil {
		return ErrPushUnavailable
	}
	if err := validateNotificationInput(input); err != nil {
		return err
	}

	sub, err := s.subscription(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrPushNotSubscribed
	}
	enabled, _ := models.FilterNotificationTypes(sub.NotificationTypes)
	if !containsString(enabled, input.Type) {
		return ErrNotificationDisabled
	}

	err = s.push.Send(ctx, sub, PushMessage{
		Title:            input.Title,
		Body:             input.Body,
		URL:              input.URL,
		NotificationType: input.Type,
	})
	if errors.Is(err, ErrSubscriptionGone) {
		if deleteErr := s.subscriptions.DeleteByEndpoint(ctx, sub.Endpoint); deleteErr != nil {
			return errors.Join(err, fmt.Errorf("remove subscription: %w", deleteErr))
		}
	}
	return err
}

func (s *NotificationService) VAPIDPublicKey() (string, error) {
	if s.vapidPublicKey == "" {
		return "", ErrPushUnavailable
	}
	return s.vapidPublicKey, nil
}

func (s *NotificationService) subscription(ctx context.Context, userID uuid.UUID) (*models.PushSubscription, error) {
	sub, err := s.subscriptions.GetByUserID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func validateNotificationTypes(types []string) ([]string, error) {
	for _, value := range types {
		if !models.IsNotificationType(value) {
			return nil, ErrInvalidInput
		}
	}
	cleaned, _ := models.FilterNotificationTypes(types)
	return cleaned, nil
}

func validateNotificationInput(input NotificationInput) error {
	if !models.IsNotificationType(input.Type) {
		return ErrInvalidInput
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Body) == "" {
		return ErrInvalidInput
	}
	return nil
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func renderNotificationEmail(name, title, body string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;color:#1f2937">`)
	fmt.Fprintf(&b, `<h2 style="color:#1e40af">%s</h2>`, html.EscapeString(title))
	if name != "" {
		fmt.Fprintf(&b, `<p>Hi %s,</p>`, html.EscapeString(name))
	}
	for _, paragraph := range strings.Split(body, "\n") {
		if paragraph = strings.TrimSpace(paragraph); paragraph != "" {
			fmt.Fprintf(&b, `<p>%s</p>`, html.EscapeString(paragraph))
		}
	}
	b.WriteString(`<p style="font-size:12px;color:#6b7280">You can change which notifications you receive in your profile settings.</p>`)
	b.WriteString(`</div>`)
	return b.String()
}
