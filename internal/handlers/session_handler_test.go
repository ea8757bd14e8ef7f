package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/delloop-lab/accreditor-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var testOwner = services.OwnerContext{
	UserID: uuid.MustParse("11111111-1111-1111-1111-111111111111"),
	Email:  "coach@example.com",
	Name:   "Coach",
	Role:   models.RoleUser,
}

// newOwnerApp returns an app whose requests carry owner the way LoadOwner
// sets it.
func newOwnerApp(owner services.OwnerContext) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("owner", owner)
		c.Locals("role", owner.Role)
		return c.Next()
	})
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

type stubSessionService struct {
	createResult   *models.Session
	createErr      error
	getResult      *models.Session
	getErr         error
	listResult     *models.SessionListing
	listErr        error
	bulkResult     *services.BulkDeleteResult
	bulkErr        error
	deleteErr      error
	lastInput      repository.SessionInput
	lastFilter     repository.SessionListFilter
	lastIncludeExt bool
	lastIDs        []uuid.UUID
	lastDeleteCli  bool
}

func (s *stubSessionService) CreateSession(_ context.Context, _ services.OwnerContext, input repository.SessionInput) (*models.Session, error) {
	s.lastInput = input
	return s.createResult, s.createErr
}

func (s *stubSessionService) GetSession(_ context.Context, _, _ uuid.UUID) (*models.Session, error) {
	return s.getResult, s.getErr
}

func (s *stubSessionService) ListSessions(_ context.Context, _ services.OwnerContext, filter repository.SessionListFilter, includeExternal bool) (*models.SessionListing, error) {
	s.lastFilter = filter
	s.lastIncludeExt = includeExternal
	return s.listResult, s.listErr
}

func (s *stubSessionService) UpdateSession(_ context.Context, _, _ uuid.UUID, input repository.SessionInput) (*models.Session, error) {
	s.lastInput = input
	return s.createResult, s.createErr
}

func (s *stubSessionService) DeleteSession(_ context.Context, _, _ uuid.UUID) error {
	return s.deleteErr
}

func (s *stubSessionService) BulkDelete(_ context.Context, _ uuid.UUID, ids []uuid.UUID, deleteClients bool) (*services.BulkDeleteResult, error) {
	s.lastIDs = ids
	s.lastDeleteCli = deleteClients
	return s.bulkResult, s.bulkErr
}

type stubExporter struct {
	export   *services.Export
	err      error
	lastYear int
}

func (s *stubExporter) ExportICFLog(_ context.Context, _ uuid.UUID, year int) (*services.Export, error) {
	s.lastYear = year
	return s.export, s.err
}

func newSessionTestApp(service *stubSessionService, exporter *stubExporter) *fiber.App {
	handler := &SessionHandler{service: service, exporter: exporter}
	app := newOwnerApp(testOwner)
	app.Get("/sessions/export", handler.ExportICFLog)
	app.Post("/sessions/bulk-delete", handler.BulkDelete)
	app.Get("/sessions", handler.ListSessions)
	app.Post("/sessions", handler.CreateSession)
	app.Get("/sessions/:id", handler.GetSession)
	app.Delete("/sessions/:id", handler.DeleteSession)
	return app
}

func TestCreateSessionReturnsCreated(t *testing.T) {
	service := &stubSessionService{
		createResult: &models.Session{ID: uuid.New(), ClientName: "Ana", Date: "2024-03-05", Duration: 60},
	}
	app := newSessionTestApp(service, &stubExporter{})

	body := `{"client_name":"Ana","date":"2024-03-05","duration":60,"types":["individual"],"payment_type":"paid"}`
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastInput.Duration != 60 || service.lastInput.Types[0] != "individual" {
		t.Fatalf("unexpected input forwarded: %+v", service.lastInput)
	}
	payload := decodeBody(t, resp)
	if _, ok := payload["session"]; !ok {
		t.Fatalf("expected session in response, got %v", payload)
	}
}

func TestCreateSessionRejectsInvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing date", body: `{"duration":60,"types":["individual"]}`, want: "date is required"},
		{name: "bad date", body: `{"date":"05/03/2024","duration":60,"types":["individual"]}`, want: "date must be a YYYY-MM-DD date"},
		{name: "zero duration", body: `{"date":"2024-03-05","duration":0,"types":["individual"]}`, want: "duration must be greater than 0"},
		{name: "bad payment type", body: `{"date":"2024-03-05","duration":30,"types":["team"],"payment_type":"free"}`, want: "payment_type must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &stubSessionService{}
			app := newSessionTestApp(service, &stubExporter{})

			req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			payload := decodeBody(t, resp)
			if msg, _ := payload["error"].(string); !strings.HasPrefix(msg, tt.want) {
				t.Fatalf("expected error starting with %q, got %q", tt.want, msg)
			}
		})
	}
}

func TestCreateSessionEntryLimitReturnsForbidden(t *testing.T) {
	service := &stubSessionService{createErr: services.ErrEntryLimitReached}
	app := newSessionTestApp(service, &stubExporter{})

	body := `{"date":"2024-03-05","duration":60,"types":["individual"]}`
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if payload := decodeBody(t, resp); payload["code"] != "entry_limit_reached" {
		t.Fatalf("expected entry_limit_reached code, got %v", payload["code"])
	}
}

func TestGetSessionNotFound(t *testing.T) {
	service := &stubSessionService{getErr: pgx.ErrNoRows}
	app := newSessionTestApp(service, &stubExporter{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.NewString(), nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetSessionRejectsMalformedID(t *testing.T) {
	app := newSessionTestApp(&stubSessionService{}, &stubExporter{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sessions/not-a-uuid", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListSessionsForwardsFilter(t *testing.T) {
	service := &stubSessionService{listResult: &models.SessionListing{}}
	app := newSessionTestApp(service, &stubExporter{})

	clientID := uuid.New()
	url := "/sessions?from=2024-01-01&to=2024-12-31&include_calendly=true&client_id=" + clientID.String()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastFilter.From != "2024-01-01" || service.lastFilter.To != "2024-12-31" {
		t.Fatalf("unexpected date filter: %+v", service.lastFilter)
	}
	if service.lastFilter.ClientID == nil || *service.lastFilter.ClientID != clientID {
		t.Fatalf("expected client filter %s", clientID)
	}
	if !service.lastIncludeExt {
		t.Fatalf("expected calendly bookings to be requested")
	}
}

func TestListSessionsRejectsBadDates(t *testing.T) {
	app := newSessionTestApp(&stubSessionService{}, &stubExporter{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sessions?from=yesterday", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDeleteSessionReturnsNoContent(t *testing.T) {
	app := newSessionTestApp(&stubSessionService{}, &stubExporter{})

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/sessions/"+uuid.NewString(), nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}

func TestBulkDeleteForwardsIDs(t *testing.T) {
	service := &stubSessionService{bulkResult: &services.BulkDeleteResult{SessionsDeleted: 2, ClientsDeleted: 1}}
	app := newSessionTestApp(service, &stubExporter{})

	first, second := uuid.New(), uuid.New()
	body := `{"session_ids":["` + first.String() + `","` + second.String() + `"],"delete_clients":true}`
	req := httptest.NewRequest(http.MethodPost, "/sessions/bulk-delete", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(service.lastIDs) != 2 || service.lastIDs[0] != first || !service.lastDeleteCli {
		t.Fatalf("unexpected bulk delete call: ids=%v deleteClients=%v", service.lastIDs, service.lastDeleteCli)
	}
	payload := decodeBody(t, resp)
	if payload["sessions_deleted"] != float64(2) {
		t.Fatalf("expected sessions_deleted 2, got %v", payload["sessions_deleted"])
	}
}

func TestBulkDeleteRequiresIDs(t *testing.T) {
	app := newSessionTestApp(&stubSessionService{}, &stubExporter{})

	req := httptest.NewRequest(http.MethodPost, "/sessions/bulk-delete", strings.NewReader(`{"session_ids":[]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestExportICFLogSendsAttachment(t *testing.T) {
	exporter := &stubExporter{export: &services.Export{
		Filename:    "icf-coaching-log-2024.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        []byte("PK"),
	}}
	app := newSessionTestApp(&stubSessionService{}, exporter)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sessions/export?year=2024", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if exporter.lastYear != 2024 {
		t.Fatalf("expected year 2024, got %d", exporter.lastYear)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, "icf-coaching-log-2024.xlsx") {
		t.Fatalf("unexpected content disposition %q", got)
	}
	if got := resp.Header.Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Fatalf("unexpected content type %q", got)
	}
}

func TestExportICFLogRejectsBadYear(t *testing.T) {
	app := newSessionTestApp(&stubSessionService{}, &stubExporter{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sessions/export?year=24", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSessionHandlerRequiresOwner(t *testing.T) {
	handler := &SessionHandler{service: &stubSessionService{}, exporter: &stubExporter{}}
	app := fiber.New()
	app.Get("/sessions", handler.ListSessions)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
