package services

import (
	"context"
	"strings"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/google/uuid"
)

type mentoringStore interface {
	Create(ctx context.Context, userID uuid.UUID, input repository.MentoringInput) (*models.MentoringSession, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.MentoringSession, error)
	List(ctx context.Context, userID uuid.UUID, sessionType string) ([]models.MentoringSession, error)
	Update(ctx context.Context, userID, id uuid.UUID, input repository.MentoringInput) (*models.MentoringSession, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type MentoringService struct {
	mentoringRepo mentoringStore
	storage       StorageService
}

func NewMentoringService(mentoringRepo mentoringStore, storage StorageService) *MentoringService {
	return &MentoringService{mentoringRepo: mentoringRepo, storage: storage}
}

func (s *MentoringService) CreateSession(
	ctx context.Context,
	userID uuid.UUID,
	input repository.MentoringInput,
	file *Upload,
) (*models.MentoringSession, error) {
	if err := normalizeMentoringInput(&input); err != nil {
		return nil, err
	}

	object, err := uploadAttachment(ctx, s.storage, "mentoring/"+userID.String(), file)
	if err != nil {
		return nil, err
	}
	if object != nil {
		input.FileURL = &object.URL
	}

	record, err := s.mentoringRepo.Create(ctx, userID, input)
	if err != nil {
		return nil, discardAttachment(ctx, s.storage, object, err)
	}
	return record, nil
}

func (s *MentoringService) GetSession(ctx context.Context, userID, id uuid.UUID) (*models.MentoringSession, error) {
	return s.mentoringRepo.GetByID(ctx, userID, id)
}

func (s *MentoringService) ListSessions(ctx context.Context, userID uuid.UUID, sessionType string) ([]models.MentoringSession, error) {
	sessionType = strings.ToLower(strings.TrimSpace(sessionType))
	if sessionType != "" && !isMentoringType(sessionType) {
		return nil, ErrInvalidInput
	}
	return s.mentoringRepo.List(ctx, userID, sessionType)
}

func (s *MentoringService) UpdateSession(
	ctx context.Context,
	userID uuid.UUID,
	id uuid.UUID,
	input repository.MentoringInput,
	file *Upload,
) (*models.MentoringSession, error) {
	if err := normalizeMentoringInput(&input); err != nil {
		return nil, err
	}

	object, err := uploadAttachment(ctx, s.storage, "mentoring/"+userID.String(), file)
	if err != nil {
		return nil, err
	}
	input.FileURL = nil
	if object != nil {
		input.FileURL = &object.URL
	}

	record, err := s.mentoringRepo.Update(ctx, userID, id, input)
	if err != nil {
		return nil, discardAttachment(ctx, s.storage, object, err)
	}
	return record, nil
}

func (s *MentoringService) DeleteSession(ctx context.Context, userID, id uuid.UUID) error {
	record, err := s.mentoringRepo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.mentoringRepo.Delete(ctx, userID, id); err != nil {
		return err
	}
	removeAttachment(ctx, s.storage, record.FileURL)
	return nil
}

func normalizeMentoringInput(input *repository.MentoringInput) error {
	input.SessionType = strings.ToLower(strings.TrimSpace(input.SessionType))
	if !isMentoringType(input.SessionType) {
		return ErrInvalidInput
	}
	input.Date = strings.TrimSpace(input.Date)
	if _, err := time.Parse(dateLayout, input.Date); err != nil {
		return ErrInvalidInput
	}
	if input.Duration <= 0 {
		return ErrInvalidInput
	}
	input.ProviderName = strings.TrimSpace(input.ProviderName)
	if input.SessionType != models.MentoringTypeSupervision {
		input.IsFormalSupervision = false
	}
	return nil
}

func isMentoringType(value string) bool {
	return value == models.MentoringTypeMentoring || value == models.MentoringTypeSupervision
}
