package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

const (
	ICFLevelNone = "none"
	ICFLevelACC  = "ACC"
	ICFLevelPCC  = "PCC"
	ICFLevelMCC  = "MCC"
)

const (
	PlanFree = "free"

	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
)

type Profile struct {
	ID                     uuid.UUID  `json:"id"`
	Name                   string     `json:"name"`
	Email                  string     `json:"email"`
	ICFLevel               string     `json:"icf_level"`
	Currency               string     `json:"currency"`
	Country                string     `json:"country"`
	CPDRenewalDate         *string    `json:"cpd_renewal_date"`
	Role                   string     `json:"role"`
	SubscriptionPlan       string     `json:"subscription_plan"`
	SubscriptionStatus     string     `json:"subscription_status"`
	BillingPeriod          string     `json:"billing_period"`
	PushNotificationTypes  []string   `json:"push_notification_types"`
	EmailNotificationTypes []string   `json:"email_notification_types"`
	LastSeenAt             *time.Time `json:"last_seen_at"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

func (p *Profile) IsAdmin() bool {
	return p != nil && (p.Role == RoleAdmin || p.Role == RoleSuperAdmin)
}

func (p *Profile) IsSubscribed() bool {
	if p == nil {
		return false
	}
	return p.SubscriptionStatus == SubscriptionStatusActive || p.SubscriptionStatus == SubscriptionStatusTrialing
}

func IsValidICFLevel(level string) bool {
	switch level {
	case ICFLevelNone, ICFLevelACC, ICFLevelPCC, ICFLevelMCC:
		return true
	default:
		return false
	}
}
