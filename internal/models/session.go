package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentTypePaid           = "paid"
	PaymentTypeProBono        = "proBono"
	PaymentTypePaidAndProBono = "paidAndProBono"
)

const (
	SessionTypeIndividual = "individual"
	SessionTypeGroup      = "group"
	SessionTypeTeam       = "team"
	SessionTypeOther      = "other"
)

type Session struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	ClientID          *uuid.UUID `json:"client_id"`
	ClientName        string     `json:"client_name"`
	Date              string     `json:"date"`
	FinishDate        *string    `json:"finish_date"`
	Duration          int        `json:"duration"`
	Types             []string   `json:"types"`
	PaymentType       string     `json:"payment_type"`
	PaymentAmount     *float64   `json:"payment_amount"`
	FocusArea         string     `json:"focus_area"`
	KeyOutcomes       string     `json:"key_outcomes"`
	ClientProgress    string     `json:"client_progress"`
	AdditionalNotes   string     `json:"additional_notes"`
	CoachingTools     []string   `json:"coaching_tools"`
	ICFCompetencies   []string   `json:"icf_competencies"`
	CalendlyBookingID *string    `json:"calendly_booking_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ExternalSession is a read-only booking merged into session listings.
type ExternalSession struct {
	CalendlyBookingID string    `json:"calendly_booking_id"`
	ClientName        string    `json:"client_name"`
	ClientEmail       string    `json:"client_email,omitempty"`
	Date              string    `json:"date"`
	StartTime         time.Time `json:"start_time"`
	Duration          int       `json:"duration"`
	EventName         string    `json:"event_name"`
	Status            string    `json:"status"`
}

type SessionListing struct {
	Sessions []Session        `json:"sessions"`
	External []ExternalSession `json:"external,omitempty"`
}
