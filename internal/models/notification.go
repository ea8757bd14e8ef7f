package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationTypes is the only list of notification types the application
// knows about. Stored preferences are always filtered against it.
var NotificationTypes = []string{
	"CPD activity reminders (14 days)",
	"Session logging reminders (7 days)",
	"ICF renewal deadline alerts",
	"Weekly progress summary",
	"Product updates and announcements",
}

func IsNotificationType(value string) bool {
	for _, known := range NotificationTypes {
		if known == value {
			return true
		}
	}
	return false
}

// FilterNotificationTypes keeps known types in their stored order, dropping
// unknown values and duplicates. The second result reports whether anything
// was dropped.
func FilterNotificationTypes(values []string) ([]string, bool) {
	filtered := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		if !IsNotificationType(value) {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		filtered = append(filtered, value)
	}
	return filtered, len(filtered) != len(values)
}

type PushSubscription struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	Endpoint          string    `json:"endpoint"`
	P256dh            string    `json:"p256dh"`
	Auth              string    `json:"auth"`
	NotificationTypes []string  `json:"notification_types"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type NotificationPreferences struct {
	PushEnabled bool     `json:"push_enabled"`
	PushTypes   []string `json:"push_types"`
	EmailTypes  []string `json:"email_types"`
	Available   []string `json:"available"`
}

const (
	ScheduledEmailPending    = "pending"
	ScheduledEmailProcessing = "processing"
	ScheduledEmailSent       = "sent"
	ScheduledEmailFailed     = "failed"

	RecipientTypeAll      = "all"
	RecipientTypeSelected = "selected"
)

type ScheduledEmail struct {
	ID               uuid.UUID   `json:"id"`
	CreatedBy        uuid.UUID   `json:"created_by"`
	Subject          string      `json:"subject"`
	HTMLBody         string      `json:"html_body"`
	RecipientType    string      `json:"recipient_type"`
	RecipientUserIDs []uuid.UUID `json:"recipient_user_ids"`
	ScheduledFor     time.Time   `json:"scheduled_for"`
	Status           string      `json:"status"`
	SentCount        int         `json:"sent_count"`
	FailedCount      int         `json:"failed_count"`
	ErrorDetails     *string     `json:"error_details"`
	SentAt           *time.Time  `json:"sent_at"`
	CreatedAt        time.Time   `json:"created_at"`
}

type DeliveryError struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

type DeliveryReport struct {
	Sent   int             `json:"sent"`
	Failed int             `json:"failed"`
	Errors []DeliveryError `json:"errors"`
}
