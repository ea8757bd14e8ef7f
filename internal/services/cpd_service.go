package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/google/uuid"
)

const hoursEpsilon = 0.01

type cpdStore interface {
	Create(ctx context.Context, userID uuid.UUID, input repository.CPDInput) (*models.CPDEntry, error)
	GetByID(ctx context.Context, userID, entryID uuid.UUID) (*models.CPDEntry, error)
	List(ctx context.Context, userID uuid.UUID, dates repository.DateRange) ([]models.CPDEntry, error)
	Update(ctx context.Context, userID, entryID uuid.UUID, input repository.CPDInput) (*models.CPDEntry, error)
	Delete(ctx context.Context, userID, entryID uuid.UUID) error
	Summary(ctx context.Context, userID uuid.UUID, dates repository.DateRange) (*models.CPDSummary, error)
}

type CPDService struct {
	cpdRepo      cpdStore
	entitlements entryGate
	storage      StorageService
}

func NewCPDService(cpdRepo cpdStore, entitlements entryGate, storage StorageService) *CPDService {
	return &CPDService{
		cpdRepo:      cpdRepo,
		entitlements: entitlements,
		storage:      storage,
	}
}

func (s *CPDService) CreateEntry(
	ctx context.Context,
	owner OwnerContext,
	input repository.CPDInput,
	document *Upload,
) (*models.CPDEntry, error) {
	if err := normalizeCPDInput(&input); err != nil {
		return nil, err
	}
	if err := requireEntry(ctx, s.entitlements, owner); err != nil {
		return nil, err
	}

	object, err := uploadAttachment(ctx, s.storage, "cpd/"+owner.UserID.String(), document)
	if err != nil {
		return nil, err
	}
	if object != nil {
		input.DocumentURL = &object.URL
	}

	entry, err := s.cpdRepo.Create(ctx, owner.UserID, input)
	if err != nil {
		return nil, discardAttachment(ctx, s.storage, object, err)
	}
	return entry, nil
}

func (s *CPDService) GetEntry(ctx context.Context, userID, entryID uuid.UUID) (*models.CPDEntry, error) {
	return s.cpdRepo.GetByID(ctx, userID, entryID)
}

func (s *CPDService) ListEntries(ctx context.Context, userID uuid.UUID, dates repository.DateRange) ([]models.CPDEntry, error) {
	if err := validateDateRange(dates); err != nil {
		return nil, err
	}
	return s.cpdRepo.List(ctx, userID, dates)
}

func (s *CPDService) UpdateEntry(
	ctx context.Context,
	userID uuid.UUID,
	entryID uuid.UUID,
	input repository.CPDInput,
	document *Upload,
) (*models.CPDEntry, error) {
	if err := normalizeCPDInput(&input); err != nil {
		return nil, err
	}

	object, err := uploadAttachment(ctx, s.storage, "cpd/"+userID.String(), document)
	if err != nil {
		return nil, err
	}
	input.DocumentURL = nil
	if object != nil {
		input.DocumentURL = &object.URL
	}

	entry, err := s.cpdRepo.Update(ctx, userID, entryID, input)
	if err != nil {
		return nil, discardAttachment(ctx, s.storage, object, err)
	}
	return entry, nil
}

func (s *CPDService) DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) error {
	entry, err := s.cpdRepo.GetByID(ctx, userID, entryID)
	if err != nil {
		return err
	}
	if err := s.cpdRepo.Delete(ctx, userID, entryID); err != nil {
		return err
	}
	removeAttachment(ctx, s.storage, entry.DocumentURL)
	return nil
}

func (s *CPDService) Summary(ctx context.Context, userID uuid.UUID, dates repository.DateRange) (*models.CPDSummary, error) {
	if err := validateDateRange(dates); err != nil {
		return nil, err
	}
	return s.cpdRepo.Summary(ctx, userID, dates)
}

func normalizeCPDInput(input *repository.CPDInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.CPDType = strings.TrimSpace(input.CPDType)
	if input.Title == "" || input.CPDType == "" {
		return ErrInvalidInput
	}
	if _, err := time.Parse(dateLayout, strings.TrimSpace(input.ActivityDate)); err != nil {
		return ErrInvalidInput
	}
	input.ActivityDate = strings.TrimSpace(input.ActivityDate)
	if input.Hours <= 0 || math.IsNaN(input.Hours) || math.IsInf(input.Hours, 0) {
		return ErrInvalidInput
	}
	return applyHourBuckets(input)
}

// applyHourBuckets enforces the split between core competency and resource
// development hours. With both categories selected the buckets must add up to
// the total; with one selected it receives all hours.
func applyHourBuckets(input *repository.CPDInput) error {
	switch {
	case input.CoreCompetency && input.ResourceDevelopment:
		if input.CoreCompetencyHours < 0 || input.ResourceDevelopmentHours < 0 {
			return ErrInvalidInput
		}
		if math.Abs(input.CoreCompetencyHours+input.ResourceDevelopmentHours-input.Hours) >= hoursEpsilon {
			return ErrHoursMismatch
		}
	case input.CoreCompetency:
		input.CoreCompetencyHours = input.Hours
		input.ResourceDevelopmentHours = 0
	case input.ResourceDevelopment:
		input.CoreCompetencyHours = 0
		input.ResourceDevelopmentHours = input.Hours
	default:
		input.CoreCompetencyHours = 0
		input.ResourceDevelopmentHours = 0
	}
	return nil
}

func validateDateRange(dates repository.DateRange) error {
	var from, to time.Time
	var err error
	if dates.From != "" {
		if from, err = time.Parse(dateLayout, dates.From); err != nil {
			return ErrInvalidInput
		}
	}
	if dates.To != "" {
		if to, err = time.Parse(dateLayout, dates.To); err != nil {
			return ErrInvalidInput
		}
	}
	if dates.From != "" && dates.To != "" && to.Before(from) {
		return ErrInvalidInput
	}
	return nil
}

// uploadAttachment stores an optional supporting file under folder. A nil
// upload yields a nil object.
func uploadAttachment(ctx context.Context, storage StorageService, folder string, upload *Upload) (*StoredObject, error) {
	if upload == nil {
		return nil, nil
	}
	if storage == nil {
		return nil, ErrStorageUnavailable
	}
	if err := upload.validate(); err != nil {
		return nil, err
	}
	return storage.Upload(ctx, upload.Content, folder, storedFilename(upload.Filename))
}

// discardAttachment removes an object whose record failed to save and
// returns cause, joined with the cleanup error if that failed too.
func discardAttachment(ctx context.Context, storage StorageService, object *StoredObject, cause error) error {
	if object == nil {
		return cause
	}
	if err := storage.Delete(ctx, object.Path); err != nil {
		return errors.Join(cause, fmt.Errorf("cleanup failed: %w", err))
	}
	return cause
}

func removeAttachment(ctx context.Context, storage StorageService, fileURL *string) {
	if storage == nil || fileURL == nil || *fileURL == "" {
		return
	}
	objectPath, err := storage.PathFromURL(*fileURL)
	if err == nil {
		err = storage.Delete(ctx, objectPath)
	}
	if err != nil {
		slog.Warn("attachment left in storage", "url", *fileURL, "error", err)
	}
}
