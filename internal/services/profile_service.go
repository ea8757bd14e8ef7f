package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/importer"
	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OwnerContext is the authenticated account every operation is scoped to.
type OwnerContext struct {
	UserID     uuid.UUID
	Email      string
	Name       string
	Role       string
	Subscribed bool
	Locale     importer.Locale
}

func (o OwnerContext) IsAdmin() bool {
	return o.Role == models.RoleAdmin || o.Role == models.RoleSuperAdmin
}

func OwnerFromProfile(profile *models.Profile) OwnerContext {
	return OwnerContext{
		UserID:     profile.ID,
		Email:      profile.Email,
		Name:       profile.Name,
		Role:       profile.Role,
		Subscribed: profile.IsSubscribed(),
		Locale: importer.Locale{
			Country:  profile.Country,
			Currency: profile.Currency,
		},
	}
}

type profileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	CreateDefault(ctx context.Context, id uuid.UUID, email, name string) (*models.Profile, error)
	Update(ctx context.Context, id uuid.UUID, input repository.UpdateProfileInput) (*models.Profile, error)
}

type ProfileService struct {
	profileRepo profileStore
}

func NewProfileService(profileRepo profileStore) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

// GetOrCreate returns the caller's profile, creating a default one from the
// token email on first access.
func (s *ProfileService) GetOrCreate(ctx context.Context, userID uuid.UUID, email string) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return s.profileRepo.CreateDefault(ctx, userID, email, defaultProfileName(email))
}

func (s *ProfileService) Owner(ctx context.Context, userID uuid.UUID, email string) (OwnerContext, error) {
	profile, err := s.GetOrCreate(ctx, userID, email)
	if err != nil {
		return OwnerContext{}, err
	}
	return OwnerFromProfile(profile), nil
}

func (s *ProfileService) UpdateProfile(
	ctx context.Context,
	userID uuid.UUID,
	input repository.UpdateProfileInput,
) (*models.Profile, error) {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidInput
		}
		input.Name = &name
	}
	if input.ICFLevel != nil && !models.IsValidICFLevel(*input.ICFLevel) {
		return nil, ErrInvalidInput
	}
	if input.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*input.Currency))
		if len(currency) != 3 {
			return nil, ErrInvalidInput
		}
		input.Currency = &currency
	}
	if input.CPDRenewalDate != nil {
		if _, err := time.Parse(dateLayout, *input.CPDRenewalDate); err != nil {
			return nil, ErrInvalidInput
		}
	}
	return s.profileRepo.Update(ctx, userID, input)
}

func defaultProfileName(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found {
		return ""
	}
	return local
}
