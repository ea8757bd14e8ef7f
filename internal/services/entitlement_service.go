package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Entitlement struct {
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason"`
	Subscribed bool   `json:"subscribed"`
	Used       int    `json:"used"`
	Limit      int    `json:"limit"`
}

type entryCounter interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// EntitlementService applies the free-plan threshold on combined CPD and
// session entries. It is a plain count check with no reservation.
type EntitlementService struct {
	sessions entryCounter
	cpd      entryCounter
	limit    int
}

func NewEntitlementService(sessions entryCounter, cpd entryCounter, limit int) *EntitlementService {
	return &EntitlementService{sessions: sessions, cpd: cpd, limit: limit}
}

func (s *EntitlementService) CanAddNewEntry(ctx context.Context, owner OwnerContext) (*Entitlement, error) {
	if owner.Subscribed || owner.IsAdmin() {
		return &Entitlement{
			Allowed:    true,
			Reason:     "Unlimited entries on your current plan",
			Subscribed: true,
			Limit:      s.limit,
		}, nil
	}

	sessionCount, err := s.sessions.CountByUser(ctx, owner.UserID)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	cpdCount, err := s.cpd.CountByUser(ctx, owner.UserID)
	if err != nil {
		return nil, fmt.Errorf("count cpd entries: %w", err)
	}

	used := sessionCount + cpdCount
	entitlement := &Entitlement{Used: used, Limit: s.limit}
	if used >= s.limit {
		entitlement.Reason = fmt.Sprintf(
			"You have reached the free plan limit of %d entries. Upgrade to add more sessions and CPD activities.",
			s.limit,
		)
		return entitlement, nil
	}

	entitlement.Allowed = true
	entitlement.Reason = fmt.Sprintf("%d of %d free entries used", used, s.limit)
	return entitlement, nil
}

type entryGate interface {
	CanAddNewEntry(ctx context.Context, owner OwnerContext) (*Entitlement, error)
}

// requireEntry returns ErrEntryLimitReached when the owner may not add more.
func requireEntry(ctx context.Context, gate entryGate, owner OwnerContext) error {
	if gate == nil {
		return nil
	}
	entitlement, err := gate.CanAddNewEntry(ctx, owner)
	if err != nil {
		return err
	}
	if !entitlement.Allowed {
		return ErrEntryLimitReached
	}
	return nil
}
