package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/services"
	"github.com/delloop-lab/accreditor-sub000/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

type stubOwnerLoader struct {
	owner     services.OwnerContext
	err       error
	lastID    uuid.UUID
	lastEmail string
}

func (s *stubOwnerLoader) Owner(_ context.Context, userID uuid.UUID, email string) (services.OwnerContext, error) {
	s.lastID = userID
	s.lastEmail = email
	if s.err != nil {
		return services.OwnerContext{}, s.err
	}
	owner := s.owner
	owner.UserID = userID
	owner.Email = email
	return owner, nil
}

type stubToucher struct {
	touched []uuid.UUID
	err     error
}

func (s *stubToucher) Touch(_ context.Context, userID uuid.UUID) error {
	s.touched = append(s.touched, userID)
	return s.err
}

func newAuthChainApp(loader *stubOwnerLoader, extra ...fiber.Handler) *fiber.App {
	app := fiber.New()
	handlers := append([]fiber.Handler{AuthRequired(testSecret), LoadOwner(loader)}, extra...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		owner := c.Locals("owner").(services.OwnerContext)
		return c.JSON(fiber.Map{"user_id": owner.UserID.String(), "role": c.Locals("role")})
	})
	app.Get("/protected", handlers...)
	return app
}

func bearerRequest(t *testing.T, userID uuid.UUID, ttl time.Duration) *http.Request {
	t.Helper()
	token, err := utils.GenerateToken(userID, "coach@example.com", "authenticated", testSecret, ttl)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthChainLoadsOwner(t *testing.T) {
	loader := &stubOwnerLoader{owner: services.OwnerContext{Role: models.RoleUser}}
	app := newAuthChainApp(loader)

	userID := uuid.New()
	resp, err := app.Test(bearerRequest(t, userID, time.Hour))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if loader.lastID != userID || loader.lastEmail != "coach@example.com" {
		t.Fatalf("unexpected owner lookup: %s %s", loader.lastID, loader.lastEmail)
	}
}

func TestAuthRequiredRejectsBadHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := &stubOwnerLoader{}
			app := newAuthChainApp(loader)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", resp.StatusCode)
			}
			if loader.lastID != uuid.Nil {
				t.Fatalf("owner should not be loaded for rejected tokens")
			}
		})
	}
}

func TestAuthRequiredRejectsExpiredToken(t *testing.T) {
	app := newAuthChainApp(&stubOwnerLoader{})

	resp, err := app.Test(bearerRequest(t, uuid.New(), -time.Minute))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLoadOwnerFailureReturnsServerError(t *testing.T) {
	app := newAuthChainApp(&stubOwnerLoader{err: errors.New("db down")})

	resp, err := app.Test(bearerRequest(t, uuid.New(), time.Hour))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestAdminRequired(t *testing.T) {
	tests := []struct {
		role string
		want int
	}{
		{role: models.RoleUser, want: http.StatusForbidden},
		{role: models.RoleAdmin, want: http.StatusOK},
		{role: models.RoleSuperAdmin, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			app := newAuthChainApp(&stubOwnerLoader{owner: services.OwnerContext{Role: tt.role}}, AdminRequired())

			resp, err := app.Test(bearerRequest(t, uuid.New(), time.Hour))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestPresenceTouchesOwnerAndIgnoresFailures(t *testing.T) {
	toucher := &stubToucher{err: errors.New("redis down")}
	app := newAuthChainApp(&stubOwnerLoader{}, Presence(toucher))

	userID := uuid.New()
	resp, err := app.Test(bearerRequest(t, userID, time.Hour))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 despite presence failure, got %d", resp.StatusCode)
	}
	if len(toucher.touched) != 1 || toucher.touched[0] != userID {
		t.Fatalf("expected presence touch for %s, got %v", userID, toucher.touched)
	}
}

func TestSchedulerTokenRequired(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		provided   string
		want       int
	}{
		{name: "valid", configured: "s3cret", provided: "s3cret", want: http.StatusOK},
		{name: "wrong token", configured: "s3cret", provided: "guess", want: http.StatusUnauthorized},
		{name: "missing header", configured: "s3cret", want: http.StatusUnauthorized},
		{name: "not configured", configured: "", provided: "anything", want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Post("/internal", SchedulerTokenRequired(tt.configured), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/internal", nil)
			if tt.provided != "" {
				req.Header.Set(SchedulerTokenHeader, tt.provided)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestAdminRateLimitPerAccount(t *testing.T) {
	first := services.OwnerContext{UserID: uuid.New(), Role: models.RoleAdmin}
	second := services.OwnerContext{UserID: uuid.New(), Role: models.RoleAdmin}

	app := fiber.New()
	app.Post("/admin/action", func(c *fiber.Ctx) error {
		if c.Get("X-Test-Admin") == "second" {
			c.Locals("owner", second)
		} else {
			c.Locals("owner", first)
		}
		return c.Next()
	}, AdminRateLimit(2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	send := func(who string) int {
		req := httptest.NewRequest(http.MethodPost, "/admin/action", nil)
		req.Header.Set("X-Test-Admin", who)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	for i := 0; i < 2; i++ {
		if status := send("first"); status != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, status)
		}
	}
	if status := send("first"); status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", status)
	}
	if status := send("second"); status != http.StatusOK {
		t.Fatalf("expected a separate budget for another admin, got %d", status)
	}
}
