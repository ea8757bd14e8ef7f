package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
)

const (
	calendlyPageSize = 100
	calendlyMaxPages = 5
)

// CalendlyService reads scheduled events for the account that owns the
// configured personal access token.
type CalendlyService struct {
	baseURL    string
	token      string
	httpClient *http.Client
	now        func() time.Time
}

func NewCalendlyService(baseURL, token string) *CalendlyService {
	return &CalendlyService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		now:        time.Now,
	}
}

type calendlyEvent struct {
	URI       string    `json:"uri"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type calendlyInvitee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type calendlyPage[T any] struct {
	Collection []T `json:"collection"`
	Pagination struct {
		NextPage string `json:"next_page"`
	} `json:"pagination"`
}

// ListEvents returns active bookings from the last year onwards, newest
// first as Calendly orders them.
func (s *CalendlyService) ListEvents(ctx context.Context, owner OwnerContext) ([]models.ExternalSession, error) {
	if s == nil || s.token == "" {
		return nil, ErrCalendlyUnavailable
	}

	userURI, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("user", userURI)
	query.Set("status", "active")
	query.Set("count", fmt.Sprint(calendlyPageSize))
	query.Set("sort", "start_time:desc")
	query.Set("min_start_time", s.now().AddDate(-1, 0, 0).UTC().Format(time.RFC3339))
	next := s.baseURL + "/scheduled_events?" + query.Encode()

	sessions := make([]models.ExternalSession, 0)
	for page := 0; next != "" && page < calendlyMaxPages; page++ {
		var events calendlyPage[calendlyEvent]
		if err := s.get(ctx, next, "list calendly events", &events); err != nil {
			return nil, err
		}
		for _, event := range events.Collection {
			session, err := s.toExternalSession(ctx, event)
			if err != nil {
				return nil, err
			}
			sessions = append(sessions, session)
		}
		next = events.Pagination.NextPage
	}
	return sessions, nil
}

func (s *CalendlyService) currentUser(ctx context.Context) (string, error) {
	var me struct {
		Resource struct {
			URI string `json:"uri"`
		} `json:"resource"`
	}
	if err := s.get(ctx, s.baseURL+"/users/me", "get calendly user", &me); err != nil {
		return "", err
	}
	if me.Resource.URI == "" {
		return "", fmt.Errorf("get calendly user: missing uri")
	}
	return me.Resource.URI, nil
}

func (s *CalendlyService) toExternalSession(ctx context.Context, event calendlyEvent) (models.ExternalSession, error) {
	session := models.ExternalSession{
		CalendlyBookingID: path.Base(event.URI),
		ClientName:        event.Name,
		Date:              event.StartTime.UTC().Format(dateLayout),
		StartTime:         event.StartTime,
		Duration:          int(event.EndTime.Sub(event.StartTime).Minutes()),
		EventName:         event.Name,
		Status:            event.Status,
	}

	var invitees calendlyPage[calendlyInvitee]
	if err := s.get(ctx, strings.TrimRight(event.URI, "/")+"/invitees?count=1", "list calendly invitees", &invitees); err != nil {
		return session, err
	}
	if len(invitees.Collection) > 0 {
		if name := strings.TrimSpace(invitees.Collection[0].Name); name != "" {
			session.ClientName = name
		}
		session.ClientEmail = strings.TrimSpace(invitees.Collection[0].Email)
	}
	return session, nil
}

func (s *CalendlyService) get(ctx context.Context, endpoint string, op string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
