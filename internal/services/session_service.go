package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrForbidden            = errors.New("forbidden")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
	ErrEntryLimitReached    = errors.New("free plan entry limit reached")
	ErrHoursMismatch        = errors.New("core competency and resource development hours must add up to the total hours")
	ErrUnsupportedFile      = errors.New("unsupported file type")
	ErrFileTooLarge         = errors.New("file is too large")
	ErrTooManyRows          = errors.New("spreadsheet has too many rows")
	ErrStorageUnavailable   = errors.New("storage service is not configured")
	ErrEmailUnavailable     = errors.New("email service is not configured")
	ErrPushUnavailable      = errors.New("push service is not configured")
	ErrPushNotSubscribed    = errors.New("no push subscription registered")
	ErrNotificationDisabled = errors.New("notification type is not enabled")
	ErrCalendlyUnavailable  = errors.New("calendly integration is not configured")
)

const dateLayout = "2006-01-02"

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type sessionStore interface {
	Create(ctx context.Context, userID uuid.UUID, input repository.SessionInput) (*models.Session, error)
	GetByID(ctx context.Context, userID, sessionID uuid.UUID) (*models.Session, error)
	List(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, error)
	Update(ctx context.Context, userID, sessionID uuid.UUID, input repository.SessionInput) (*models.Session, error)
	Delete(ctx context.Context, userID, sessionID uuid.UUID) error
	ListBookingIDs(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error)
}

type clientReader interface {
	GetByID(ctx context.Context, userID, clientID uuid.UUID) (*models.Client, error)
}

type externalSessionSource interface {
	ListEvents(ctx context.Context, owner OwnerContext) ([]models.ExternalSession, error)
}

type SessionService struct {
	db           txBeginner
	sessionRepo  sessionStore
	clientRepo   clientReader
	entitlements entryGate
	calendly     externalSessionSource
}

func NewSessionService(
	db txBeginner,
	sessionRepo sessionStore,
	clientRepo clientReader,
	entitlements entryGate,
	calendly externalSessionSource,
) *SessionService {
	return &SessionService{
		db:           db,
		sessionRepo:  sessionRepo,
		clientRepo:   clientRepo,
		entitlements: entitlements,
		calendly:     calendly,
	}
}

func (s *SessionService) CreateSession(
	ctx context.Context,
	owner OwnerContext,
	input repository.SessionInput,
) (*models.Session, error) {
	if err := s.prepareInput(ctx, owner.UserID, &input); err != nil {
		return nil, err
	}
	if err := requireEntry(ctx, s.entitlements, owner); err != nil {
		return nil, err
	}
	return s.sessionRepo.Create(ctx, owner.UserID, input)
}

func (s *SessionService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.Session, error) {
	return s.sessionRepo.GetByID(ctx, userID, sessionID)
}

// ListSessions returns the owner's sessions. With includeExternal, bookings
// from the calendar integration are appended unless a stored session already
// carries the same booking id.
func (s *SessionService) ListSessions(
	ctx context.Context,
	owner OwnerContext,
	filter repository.SessionListFilter,
	includeExternal bool,
) (*models.SessionListing, error) {
	filter.UserID = owner.UserID
	sessions, err := s.sessionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	listing := &models.SessionListing{Sessions: sessions}
	if !includeExternal || s.calendly == nil {
		return listing, nil
	}

	events, err := s.calendly.ListEvents(ctx, owner)
	if err != nil {
		if !errors.Is(err, ErrCalendlyUnavailable) {
			slog.Warn("calendly events unavailable", "user_id", owner.UserID, "error", err)
		}
		return listing, nil
	}

	known, err := s.sessionRepo.ListBookingIDs(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}
	listing.External = mergeExternalSessions(events, known)
	return listing, nil
}

func (s *SessionService) UpdateSession(
	ctx context.Context,
	userID uuid.UUID,
	sessionID uuid.UUID,
	input repository.SessionInput,
) (*models.Session, error) {
	if err := s.prepareInput(ctx, userID, &input); err != nil {
		return nil, err
	}
	return s.sessionRepo.Update(ctx, userID, sessionID, input)
}

func (s *SessionService) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	return s.sessionRepo.Delete(ctx, userID, sessionID)
}

type BulkDeleteResult struct {
	SessionsDeleted int `json:"sessions_deleted"`
	ClientsDeleted  int `json:"clients_deleted"`
}

// BulkDelete removes the given sessions and, when deleteClients is set, the
// clients those sessions referenced. Both steps commit together.
func (s *SessionService) BulkDelete(
	ctx context.Context,
	userID uuid.UUID,
	sessionIDs []uuid.UUID,
	deleteClients bool,
) (*BulkDeleteResult, error) {
	if len(sessionIDs) == 0 {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	deleted, clientIDs, err := repository.NewSessionRepository(tx).DeleteByIDs(ctx, userID, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("delete sessions: %w", err)
	}

	result := &BulkDeleteResult{SessionsDeleted: deleted}
	if deleteClients && len(clientIDs) > 0 {
		removed, err := repository.NewClientRepository(tx).DeleteByIDs(ctx, userID, clientIDs)
		if err != nil {
			return nil, fmt.Errorf("delete clients: %w", err)
		}
		result.ClientsDeleted = removed
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SessionService) prepareInput(ctx context.Context, userID uuid.UUID, input *repository.SessionInput) error {
	if input.ClientID != nil && s.clientRepo != nil {
		client, err := s.clientRepo.GetByID(ctx, userID, *input.ClientID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvalidInput
			}
			return err
		}
		if strings.TrimSpace(input.ClientName) == "" {
			input.ClientName = client.Name
		}
	}
	return normalizeSessionInput(input)
}

func normalizeSessionInput(input *repository.SessionInput) error {
	input.ClientName = strings.TrimSpace(input.ClientName)
	if input.ClientName == "" {
		return ErrInvalidInput
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(input.Date))
	if err != nil {
		return ErrInvalidInput
	}
	input.Date = date.Format(dateLayout)

	if input.FinishDate != nil {
		trimmed := strings.TrimSpace(*input.FinishDate)
		if trimmed == "" {
			input.FinishDate = nil
		} else {
			finish, err := time.Parse(dateLayout, trimmed)
			if err != nil || finish.Before(date) {
				return ErrInvalidInput
			}
			input.FinishDate = &trimmed
		}
	}

	if input.Duration <= 0 {
		return ErrInvalidInput
	}

	if len(input.Types) == 0 {
		return ErrInvalidInput
	}
	types := make([]string, 0, len(input.Types))
	for _, value := range input.Types {
		kind := strings.ToLower(strings.TrimSpace(value))
		switch kind {
		case models.SessionTypeIndividual, models.SessionTypeGroup, models.SessionTypeTeam, models.SessionTypeOther:
			types = append(types, kind)
		default:
			return ErrInvalidInput
		}
	}
	input.Types = types

	switch input.PaymentType {
	case models.PaymentTypePaid, models.PaymentTypeProBono, models.PaymentTypePaidAndProBono:
	case "":
		input.PaymentType = models.PaymentTypeProBono
	default:
		return ErrInvalidInput
	}

	if input.PaymentAmount != nil && *input.PaymentAmount < 0 {
		return ErrInvalidInput
	}
	return nil
}

func mergeExternalSessions(events []models.ExternalSession, known map[string]struct{}) []models.ExternalSession {
	merged := make([]models.ExternalSession, 0, len(events))
	for _, event := range events {
		if _, ok := known[event.CalendlyBookingID]; ok {
			continue
		}
		merged = append(merged, event)
	}
	return merged
}
