package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/delloop-lab/accreditor-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var testSuperAdmin = services.OwnerContext{
	UserID: uuid.MustParse("22222222-2222-2222-2222-222222222222"),
	Email:  "owner@example.com",
	Role:   models.RoleSuperAdmin,
}

type stubAdminService struct {
	users          []models.AdminUserSummary
	total          int
	report         *models.DeliveryReport
	roleErr        error
	scheduleCalls  int
	deleteErr      error
	export         *services.Export
	lastFilter     repository.UserListFilter
	lastRole       string
	lastActor      services.OwnerContext
	lastSendToAll  bool
	lastUserIDs    []uuid.UUID
	lastCustom     services.CustomEmail
	lastScheduled  time.Time
	lastReportYear int
}

func (s *stubAdminService) Dashboard(_ context.Context) (*models.DashboardStats, error) {
	return &models.DashboardStats{TotalUsers: 4}, nil
}

func (s *stubAdminService) ListUsers(_ context.Context, filter repository.UserListFilter) ([]models.AdminUserSummary, int, error) {
	s.lastFilter = filter
	return s.users, s.total, nil
}

func (s *stubAdminService) UpdateSubscription(_ context.Context, userID uuid.UUID, _ services.SubscriptionUpdate) (*models.Profile, error) {
	return &models.Profile{ID: userID}, nil
}

func (s *stubAdminService) UpdateRole(_ context.Context, actor services.OwnerContext, userID uuid.UUID, role string) (*models.Profile, error) {
	s.lastActor = actor
	s.lastRole = role
	if s.roleErr != nil {
		return nil, s.roleErr
	}
	return &models.Profile{ID: userID, Role: role}, nil
}

func (s *stubAdminService) SendReminders(_ context.Context, sendToAll bool, userIDs []uuid.UUID) (*models.DeliveryReport, error) {
	s.lastSendToAll = sendToAll
	s.lastUserIDs = userIDs
	return s.report, nil
}

func (s *stubAdminService) SendCustomReminders(_ context.Context, email services.CustomEmail) (*models.DeliveryReport, error) {
	s.lastCustom = email
	return s.report, nil
}

func (s *stubAdminService) ScheduleEmail(_ context.Context, _ uuid.UUID, email services.CustomEmail, scheduledFor time.Time) (*models.ScheduledEmail, error) {
	s.scheduleCalls++
	s.lastCustom = email
	s.lastScheduled = scheduledFor
	return &models.ScheduledEmail{ID: uuid.New(), Subject: email.Subject}, nil
}

func (s *stubAdminService) ListScheduledEmails(_ context.Context, _ string) ([]models.ScheduledEmail, error) {
	return nil, nil
}

func (s *stubAdminService) DeleteScheduledEmail(_ context.Context, _ uuid.UUID) error {
	return s.deleteErr
}

func (s *stubAdminService) ProcessScheduledEmails(_ context.Context) (*services.ProcessResult, error) {
	return &services.ProcessResult{Processed: 1, Sent: 1}, nil
}

func (s *stubAdminService) UserReport(_ context.Context, _ uuid.UUID, year int) (*services.Export, error) {
	s.lastReportYear = year
	return s.export, nil
}

var adminTestNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newAdminTestApp(service *stubAdminService) *fiber.App {
	handler := &AdminHandler{service: service, now: func() time.Time { return adminTestNow }}
	app := newOwnerApp(testSuperAdmin)
	app.Get("/admin/users", handler.ListUsers)
	app.Put("/admin/users/:id/role", handler.UpdateRole)
	app.Get("/admin/users/:id/report", handler.UserReport)
	app.Post("/admin/send-reminders", handler.SendReminders)
	app.Post("/admin/send-custom-reminders", handler.SendCustomReminders)
	app.Post("/admin/schedule-email", handler.ScheduleEmail)
	app.Delete("/admin/scheduled-emails/:id", handler.DeleteScheduledEmail)
	return app
}

func TestListUsersBuildsPagination(t *testing.T) {
	service := &stubAdminService{users: []models.AdminUserSummary{{ID: uuid.New()}}, total: 45}
	app := newAdminTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/users?page=2&limit=20&search=ana", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastFilter.Page != 2 || service.lastFilter.Limit != 20 || service.lastFilter.Search != "ana" {
		t.Fatalf("unexpected filter %+v", service.lastFilter)
	}
	payload := decodeBody(t, resp)
	meta, _ := payload["pagination"].(map[string]any)
	if meta["total_pages"] != float64(3) {
		t.Fatalf("expected 3 pages, got %v", meta["total_pages"])
	}
}

func TestListUsersCapsLimit(t *testing.T) {
	service := &stubAdminService{}
	app := newAdminTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/users?limit=1000", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if service.lastFilter.Limit != maxPageLimit {
		t.Fatalf("expected limit capped at %d, got %d", maxPageLimit, service.lastFilter.Limit)
	}
}

func TestListUsersRejectsBadPage(t *testing.T) {
	app := newAdminTestApp(&stubAdminService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/users?page=0", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUpdateRoleSelfDemotionConflict(t *testing.T) {
	service := &stubAdminService{roleErr: services.ErrConflict}
	app := newAdminTestApp(service)

	resp, err := app.Test(jsonRequest(http.MethodPut, "/admin/users/"+testSuperAdmin.UserID.String()+"/role", `{"role":"user"}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if service.lastActor.UserID != testSuperAdmin.UserID {
		t.Fatalf("expected acting admin to be forwarded")
	}
}

func TestUpdateRoleRejectsUnknownRole(t *testing.T) {
	service := &stubAdminService{}
	app := newAdminTestApp(service)

	resp, err := app.Test(jsonRequest(http.MethodPut, "/admin/users/"+uuid.NewString()+"/role", `{"role":"owner"}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.lastRole != "" {
		t.Fatalf("service should not be called for unknown roles")
	}
}

func TestUpdateRoleForbiddenForPlainAdmin(t *testing.T) {
	app := newAdminTestApp(&stubAdminService{roleErr: services.ErrForbidden})

	resp, err := app.Test(jsonRequest(http.MethodPut, "/admin/users/"+uuid.NewString()+"/role", `{"role":"admin"}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestSendRemindersRequiresRecipients(t *testing.T) {
	app := newAdminTestApp(&stubAdminService{})

	resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/send-reminders", `{"send_to_all":false}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSendRemindersToSelectedUsers(t *testing.T) {
	service := &stubAdminService{report: &models.DeliveryReport{Sent: 1}}
	app := newAdminTestApp(service)

	target := uuid.New()
	resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/send-reminders", `{"user_ids":["`+target.String()+`"]}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastSendToAll || len(service.lastUserIDs) != 1 || service.lastUserIDs[0] != target {
		t.Fatalf("unexpected recipients: all=%v ids=%v", service.lastSendToAll, service.lastUserIDs)
	}
	if payload := decodeBody(t, resp); payload["sent"] != float64(1) {
		t.Fatalf("expected sent 1, got %v", payload["sent"])
	}
}

func TestSendCustomRemindersValidatesRecipientType(t *testing.T) {
	app := newAdminTestApp(&stubAdminService{})

	body := `{"subject":"Hello","email_content":"Hi {{name}}","recipient_type":"everyone"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/send-custom-reminders", body))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestScheduleEmailRejectsPastTime(t *testing.T) {
	service := &stubAdminService{}
	app := newAdminTestApp(service)

	body := `{"subject":"Renewal","email_content":"Hi","recipient_type":"all","scheduled_for":"2025-05-31T12:00:00Z"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/schedule-email", body))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.scheduleCalls != 0 {
		t.Fatalf("service should not be called for past schedules")
	}
}

func TestScheduleEmailAcceptsFutureTime(t *testing.T) {
	service := &stubAdminService{}
	app := newAdminTestApp(service)

	body := `{"subject":"Renewal","email_content":"Hi","recipient_type":"all","scheduled_for":"2025-06-02T09:30:00.000Z"}`
	resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/schedule-email", body))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	want := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	if !service.lastScheduled.Equal(want) {
		t.Fatalf("expected %s, got %s", want, service.lastScheduled)
	}
	if service.lastCustom.RecipientType != "all" {
		t.Fatalf("unexpected recipient type %q", service.lastCustom.RecipientType)
	}
}

func TestDeleteScheduledEmailNotPending(t *testing.T) {
	app := newAdminTestApp(&stubAdminService{deleteErr: services.ErrNotFound})

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/admin/scheduled-emails/"+uuid.NewString(), nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUserReportDefaultsToCurrentYear(t *testing.T) {
	service := &stubAdminService{export: &services.Export{
		Filename:    "user-report-2025.html",
		ContentType: fiber.MIMETextHTMLCharsetUTF8,
		Data:        []byte("<html></html>"),
	}}
	app := newAdminTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/users/"+uuid.NewString()+"/report", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastReportYear != 2025 {
		t.Fatalf("expected year 2025, got %d", service.lastReportYear)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, "user-report-2025.html") {
		t.Fatalf("unexpected content disposition %q", got)
	}
}
