package services

import (
	"context"
	"errors"
	"testing"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type stubProfileRepo struct {
	profile *models.Profile
	created int
	updated *repository.UpdateProfileInput
}

func (r *stubProfileRepo) GetByID(_ context.Context, _ uuid.UUID) (*models.Profile, error) {
	if r.profile == nil {
		return nil, pgx.ErrNoRows
	}
	return r.profile, nil
}

func (r *stubProfileRepo) CreateDefault(_ context.Context, id uuid.UUID, email, name string) (*models.Profile, error) {
	r.created++
	r.profile = &models.Profile{ID: id, Email: email, Name: name, Role: models.RoleUser, ICFLevel: models.ICFLevelNone}
	return r.profile, nil
}

func (r *stubProfileRepo) Update(_ context.Context, id uuid.UUID, input repository.UpdateProfileInput) (*models.Profile, error) {
	r.updated = &input
	return &models.Profile{ID: id}, nil
}

func TestGetOrCreateCreatesProfileOnce(t *testing.T) {
	repo := &stubProfileRepo{}
	svc := NewProfileService(repo)
	userID := uuid.New()

	profile, err := svc.GetOrCreate(context.Background(), userID, "ana.coach@example.com")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if profile.Name != "ana.coach" || repo.created != 1 {
		t.Fatalf("unexpected profile %+v (created %d)", profile, repo.created)
	}

	if _, err := svc.GetOrCreate(context.Background(), userID, "ana.coach@example.com"); err != nil {
		t.Fatalf("GetOrCreate again: %v", err)
	}
	if repo.created != 1 {
		t.Fatal("existing profile should be reused")
	}
}

func TestOwnerCarriesLocaleAndPlan(t *testing.T) {
	repo := &stubProfileRepo{profile: &models.Profile{
		ID:                 uuid.New(),
		Role:               models.RoleUser,
		Country:            "DE",
		Currency:           "EUR",
		SubscriptionStatus: models.SubscriptionStatusTrialing,
	}}
	owner, err := NewProfileService(repo).Owner(context.Background(), repo.profile.ID, "")
	if err != nil {
		t.Fatalf("Owner: %v", err)
	}
	if !owner.Subscribed || owner.Locale.Country != "DE" || owner.Locale.Currency != "EUR" || owner.IsAdmin() {
		t.Fatalf("unexpected owner %+v", owner)
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	svc := NewProfileService(&stubProfileRepo{})
	blank := " "
	level := "Gold"
	currency := "EURO"
	date := "31/12/2026"

	inputs := []repository.UpdateProfileInput{
		{Name: &blank},
		{ICFLevel: &level},
		{Currency: &currency},
		{CPDRenewalDate: &date},
	}
	for _, input := range inputs {
		if _, err := svc.UpdateProfile(context.Background(), uuid.New(), input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", input, err)
		}
	}
}

func TestUpdateProfileNormalizesCurrency(t *testing.T) {
	repo := &stubProfileRepo{}
	currency := " gbp "
	if _, err := NewProfileService(repo).UpdateProfile(context.Background(), uuid.New(), repository.UpdateProfileInput{Currency: &currency}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if repo.updated == nil || *repo.updated.Currency != "GBP" {
		t.Fatalf("expected normalized currency, got %+v", repo.updated)
	}
}
