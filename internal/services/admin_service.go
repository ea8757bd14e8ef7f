package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/google/uuid"
)

var subscriptionStatuses = map[string]struct{}{
	"":                                {},
	models.SubscriptionStatusActive:   {},
	models.SubscriptionStatusTrialing: {},
	"past_due":                        {},
	"canceled":                        {},
	"inactive":                        {},
}

var billingPeriods = map[string]struct{}{
	"":        {},
	"monthly": {},
	"yearly":  {},
}

type adminProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListAll(ctx context.Context) ([]models.Profile, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Profile, error)
	ListSummaries(ctx context.Context, filter repository.UserListFilter) ([]models.AdminUserSummary, int, error)
	DashboardStats(ctx context.Context, onlineSince time.Time) (*models.DashboardStats, error)
	UpdateSubscription(ctx context.Context, id uuid.UUID, plan, status, billingPeriod string) (*models.Profile, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role string) (*models.Profile, error)
}

type scheduledEmailStore interface {
	Create(ctx context.Context, email *models.ScheduledEmail) error
	List(ctx context.Context, status string) ([]models.ScheduledEmail, error)
	ClaimDue(ctx context.Context, now time.Time) ([]models.ScheduledEmail, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, status string, report models.DeliveryReport, errorDetails *string, sentAt time.Time) error
	DeletePending(ctx context.Context, id uuid.UUID) error
}

type reportSessionReader interface {
	List(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, error)
}

type reportCPDReader interface {
	List(ctx context.Context, userID uuid.UUID, dates repository.DateRange) ([]models.CPDEntry, error)
}

type presenceReader interface {
	LastSeen(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]time.Time, error)
}

type AdminService struct {
	profiles  adminProfileStore
	scheduled scheduledEmailStore
	sessions  reportSessionReader
	cpd       reportCPDReader
	presence  presenceReader
	email     EmailSender
	now       func() time.Time
}

func NewAdminService(
	profiles adminProfileStore,
	scheduled scheduledEmailStore,
	sessions reportSessionReader,
	cpd reportCPDReader,
	presence presenceReader,
	email EmailSender,
) *AdminService {
	return &AdminService{
		profiles:  profiles,
		scheduled: scheduled,
		sessions:  sessions,
		cpd:       cpd,
		presence:  presence,
		email:     email,
		now:       time.Now,
	}
}

type SubscriptionUpdate struct {
	Plan          string
	Status        string
	BillingPeriod string
}

// CustomEmail is an admin-authored message. Content may use the
// {{userName}}, {{userEmail}}, {{icfLevel}} and {{currentYear}} placeholders.
type CustomEmail struct {
	Subject          string
	Content          string
	RecipientType    string
	RecipientUserIDs []uuid.UUID
}

type ProcessResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

func (s *AdminService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	return s.profiles.DashboardStats(ctx, s.now().Add(-OnlineWindow))
}

// ListUsers returns one page of users. Cached presence overrides the stored
// last-seen value when it is newer.
func (s *AdminService) ListUsers(ctx context.Context, filter repository.UserListFilter) ([]models.AdminUserSummary, int, error) {
	users, total, err := s.profiles.ListSummaries(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cached := map[uuid.UUID]time.Time{}
	if s.presence != nil && len(users) > 0 {
		ids := make([]uuid.UUID, len(users))
		for i, user := range users {
			ids[i] = user.ID
		}
		if cached, err = s.presence.LastSeen(ctx, ids); err != nil {
			slog.Warn("presence lookup failed", "error", err)
			cached = map[uuid.UUID]time.Time{}
		}
	}

	now := s.now()
	for i := range users {
		if seen, ok := cached[users[i].ID]; ok && (users[i].LastSeenAt == nil || seen.After(*users[i].LastSeenAt)) {
			seenAt := seen
			users[i].LastSeenAt = &seenAt
		}
		users[i].Online = IsOnline(users[i].LastSeenAt, now)
	}
	return users, total, nil
}

func (s *AdminService) UpdateSubscription(ctx context.Context, userID uuid.UUID, update SubscriptionUpdate) (*models.Profile, error) {
	update.Plan = strings.TrimSpace(update.Plan)
	update.Status = strings.ToLower(strings.TrimSpace(update.Status))
	update.BillingPeriod = strings.ToLower(strings.TrimSpace(update.BillingPeriod))
	if update.Plan == "" {
		update.Plan = models.PlanFree
	}
	if _, ok := subscriptionStatuses[update.Status]; !ok {
		return nil, ErrInvalidInput
	}
	if _, ok := billingPeriods[update.BillingPeriod]; !ok {
		return nil, ErrInvalidInput
	}
	return s.profiles.UpdateSubscription(ctx, userID, update.Plan, update.Status, update.BillingPeriod)
}

// UpdateRole is reserved to super admins, who cannot demote themselves.
func (s *AdminService) UpdateRole(ctx context.Context, actor OwnerContext, userID uuid.UUID, role string) (*models.Profile, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, ErrForbidden
	}
	switch role {
	case models.RoleUser, models.RoleAdmin, models.RoleSuperAdmin:
	default:
		return nil, ErrInvalidInput
	}
	if actor.UserID == userID && role != models.RoleSuperAdmin {
		return nil, ErrConflict
	}
	return s.profiles.UpdateRole(ctx, userID, role)
}

// SendReminders emails the standard logging reminder to every user or to
// the listed users. Individual failures are reported, never fatal.
func (s *AdminService) SendReminders(ctx context.Context, sendToAll bool, userIDs []uuid.UUID) (*models.DeliveryReport, error) {
	if s.email == nil {
		return nil, ErrEmailUnavailable
	}
	recipientType := models.RecipientTypeSelected
	if sendToAll {
		recipientType = models.RecipientTypeAll
	}
	recipients, err := s.recipients(ctx, recipientType, userIDs)
	if err != nil {
		return nil, err
	}

	year := s.now().Year()
	report := s.deliver(ctx, recipients, func(profile models.Profile) EmailMessage {
		return EmailMessage{
			To:      profile.Email,
			Subject: "Keep your ICF coaching log up to date",
			HTML:    renderReminderEmail(profile, year),
		}
	})
	return &report, nil
}

func (s *AdminService) SendCustomReminders(ctx context.Context, email CustomEmail) (*models.DeliveryReport, error) {
	if s.email == nil {
		return nil, ErrEmailUnavailable
	}
	if err := validateCustomEmail(&email); err != nil {
		return nil, err
	}
	recipients, err := s.recipients(ctx, email.RecipientType, email.RecipientUserIDs)
	if err != nil {
		return nil, err
	}

	report := s.deliver(ctx, recipients, s.customComposer(email.Subject, email.Content))
	return &report, nil
}

func (s *AdminService) ScheduleEmail(
	ctx context.Context,
	actorID uuid.UUID,
	email CustomEmail,
	scheduledFor time.Time,
) (*models.ScheduledEmail, error) {
	if err := validateCustomEmail(&email); err != nil {
		return nil, err
	}
	if !scheduledFor.After(s.now()) {
		return nil, ErrInvalidInput
	}

	scheduled := &models.ScheduledEmail{
		CreatedBy:        actorID,
		Subject:          email.Subject,
		HTMLBody:         email.Content,
		RecipientType:    email.RecipientType,
		RecipientUserIDs: email.RecipientUserIDs,
		ScheduledFor:     scheduledFor.UTC(),
	}
	if err := s.scheduled.Create(ctx, scheduled); err != nil {
		return nil, err
	}
	return scheduled, nil
}

func (s *AdminService) ListScheduledEmails(ctx context.Context, status string) ([]models.ScheduledEmail, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "", models.ScheduledEmailPending, models.ScheduledEmailProcessing, models.ScheduledEmailSent, models.ScheduledEmailFailed:
	default:
		return nil, ErrInvalidInput
	}
	return s.scheduled.List(ctx, status)
}

func (s *AdminService) DeleteScheduledEmail(ctx context.Context, id uuid.UUID) error {
	return s.scheduled.DeletePending(ctx, id)
}

// ProcessScheduledEmails delivers every due email. An email is marked sent
// when at least one recipient received it and failed otherwise. Sent and
// Failed in the result count emails, not recipients. A failure to record an
// outcome does not stop the run; those errors are returned together and the
// row is picked up again once its claim expires.
func (s *AdminService) ProcessScheduledEmails(ctx context.Context) (*ProcessResult, error) {
	if s.email == nil {
		return nil, ErrEmailUnavailable
	}

	due, err := s.scheduled.ClaimDue(ctx, s.now())
	if err != nil {
		return nil, err
	}

	result := &ProcessResult{}
	var markErrs []error
	for _, email := range due {
		result.Processed++

		var report models.DeliveryReport
		recipients, err := s.recipients(ctx, email.RecipientType, email.RecipientUserIDs)
		if err != nil {
			report = models.DeliveryReport{Errors: []models.DeliveryError{{Error: err.Error()}}}
		} else {
			report = s.deliver(ctx, recipients, s.customComposer(email.Subject, email.HTMLBody))
		}

		status := models.ScheduledEmailFailed
		if report.Sent > 0 {
			status = models.ScheduledEmailSent
			result.Sent++
		} else {
			result.Failed++
		}

		if err := s.scheduled.MarkProcessed(ctx, email.ID, status, report, deliveryErrorDetails(report), s.now()); err != nil {
			slog.Error("failed to record scheduled email outcome", "scheduled_email_id", email.ID, "error", err)
			markErrs = append(markErrs, fmt.Errorf("scheduled email %s: %w", email.ID, err))
			continue
		}
		slog.Info("scheduled email processed",
			"scheduled_email_id", email.ID,
			"status", status,
			"sent", report.Sent,
			"failed", report.Failed,
		)
	}
	return result, errors.Join(markErrs...)
}

func (s *AdminService) recipients(ctx context.Context, recipientType string, userIDs []uuid.UUID) ([]models.Profile, error) {
	switch recipientType {
	case models.RecipientTypeAll:
		return s.profiles.ListAll(ctx)
	case models.RecipientTypeSelected:
		if len(userIDs) == 0 {
			return nil, ErrInvalidInput
		}
		return s.profiles.ListByIDs(ctx, userIDs)
	default:
		return nil, ErrInvalidInput
	}
}

func (s *AdminService) deliver(
	ctx context.Context,
	recipients []models.Profile,
	compose func(models.Profile) EmailMessage,
) models.DeliveryReport {
	report := models.DeliveryReport{Errors: []models.DeliveryError{}}
	for _, profile := range recipients {
		if strings.TrimSpace(profile.Email) == "" {
			report.Failed++
			report.Errors = append(report.Errors, models.DeliveryError{Email: profile.Name, Error: "missing email address"})
			continue
		}
		if err := s.email.Send(ctx, compose(profile)); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, models.DeliveryError{Email: profile.Email, Error: err.Error()})
			continue
		}
		report.Sent++
	}
	return report
}

func (s *AdminService) customComposer(subject, content string) func(models.Profile) EmailMessage {
	year := s.now().Year()
	return func(profile models.Profile) EmailMessage {
		return EmailMessage{
			To:      profile.Email,
			Subject: ApplyPlaceholders(subject, profile, year, false),
			HTML:    ApplyPlaceholders(content, profile, year, true),
		}
	}
}

// ApplyPlaceholders substitutes the user placeholders in text. Values are
// HTML-escaped when the text is markup.
func ApplyPlaceholders(text string, profile models.Profile, year int, escape bool) string {
	value := func(v string) string {
		if escape {
			return html.EscapeString(v)
		}
		return v
	}
	return strings.NewReplacer(
		"{{userName}}", value(displayName(profile)),
		"{{userEmail}}", value(profile.Email),
		"{{icfLevel}}", value(icfLevelLabel(profile.ICFLevel)),
		"{{currentYear}}", strconv.Itoa(year),
	).Replace(text)
}

func validateCustomEmail(email *CustomEmail) error {
	email.Subject = strings.TrimSpace(email.Subject)
	email.Content = strings.TrimSpace(email.Content)
	email.RecipientType = strings.ToLower(strings.TrimSpace(email.RecipientType))
	if email.Subject == "" || email.Content == "" {
		return ErrInvalidInput
	}
	switch email.RecipientType {
	case models.RecipientTypeAll:
		email.RecipientUserIDs = nil
	case models.RecipientTypeSelected:
		if len(email.RecipientUserIDs) == 0 {
			return ErrInvalidInput
		}
	default:
		return ErrInvalidInput
	}
	return nil
}

func deliveryErrorDetails(report models.DeliveryReport) *string {
	if len(report.Errors) == 0 {
		return nil
	}
	data, err := json.Marshal(report.Errors)
	if err != nil {
		details := fmt.Sprintf("%d deliveries failed", report.Failed)
		return &details
	}
	details := string(data)
	return &details
}

func displayName(profile models.Profile) string {
	if name := strings.TrimSpace(profile.Name); name != "" {
		return name
	}
	return defaultProfileName(profile.Email)
}

func icfLevelLabel(level string) string {
	if level == "" || level == models.ICFLevelNone {
		return "No credential yet"
	}
	return level
}

func renderReminderEmail(profile models.Profile, year int) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;color:#1f2937">`)
	fmt.Fprintf(&b, `<p>Hi %s,</p>`, html.EscapeString(displayName(profile)))
	b.WriteString(`<p>This is a friendly reminder to log your recent coaching sessions and CPD activities.</p>`)
	fmt.Fprintf(&b, `<p>Keeping your %d log current makes your next ICF application or renewal much easier.</p>`, year)
	if profile.ICFLevel != "" && profile.ICFLevel != models.ICFLevelNone {
		fmt.Fprintf(&b, `<p>Current credential: <strong>%s</strong></p>`, html.EscapeString(profile.ICFLevel))
	}
	b.WriteString(`</div>`)
	return b.String()
}
