package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestCalendlyListEventsMapsBookings(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer cal-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/users/me":
			fmt.Fprintf(w, `{"resource":{"uri":"%s/users/U1"}}`, server.URL)
		case "/scheduled_events":
			if r.URL.Query().Get("user") != server.URL+"/users/U1" || r.URL.Query().Get("status") != "active" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			fmt.Fprintf(w, `{"collection":[{"uri":"%s/scheduled_events/EV1","name":"Discovery call","status":"active",
				"start_time":"2026-09-01T09:00:00Z","end_time":"2026-09-01T09:45:00Z"}],"pagination":{"next_page":""}}`, server.URL)
		case "/scheduled_events/EV1/invitees":
			fmt.Fprint(w, `{"collection":[{"name":"Maria Lopez","email":"maria@example.com"}],"pagination":{}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	svc := NewCalendlyService(server.URL, "cal-token")
	events, err := svc.ListEvents(context.Background(), OwnerContext{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	got := events[0]
	if got.CalendlyBookingID != "EV1" || got.ClientName != "Maria Lopez" || got.ClientEmail != "maria@example.com" {
		t.Fatalf("unexpected mapping %+v", got)
	}
	if got.Date != "2026-09-01" || got.Duration != 45 || got.EventName != "Discovery call" {
		t.Fatalf("unexpected timing %+v", got)
	}
}

func TestCalendlyNotConfigured(t *testing.T) {
	svc := NewCalendlyService("https://api.calendly.com", "")
	if _, err := svc.ListEvents(context.Background(), OwnerContext{}); !errors.Is(err, ErrCalendlyUnavailable) {
		t.Fatalf("expected ErrCalendlyUnavailable, got %v", err)
	}
}

func TestCalendlyUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "token revoked", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewCalendlyService(server.URL, "stale").ListEvents(context.Background(), OwnerContext{})
	if err == nil || errors.Is(err, ErrCalendlyUnavailable) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
