package models

import (
	"time"

	"github.com/google/uuid"
)

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type AdminUserSummary struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Role               string     `json:"role"`
	ICFLevel           string     `json:"icf_level"`
	SubscriptionPlan   string     `json:"subscription_plan"`
	SubscriptionStatus string     `json:"subscription_status"`
	BillingPeriod      string     `json:"billing_period"`
	SessionCount       int        `json:"session_count"`
	CPDCount           int        `json:"cpd_count"`
	LastSeenAt         *time.Time `json:"last_seen_at"`
	Online             bool       `json:"online"`
	CreatedAt          time.Time  `json:"created_at"`
}

type DashboardStats struct {
	TotalUsers      int     `json:"total_users"`
	SubscribedUsers int     `json:"subscribed_users"`
	OnlineUsers     int     `json:"online_users"`
	TotalSessions   int     `json:"total_sessions"`
	TotalCPDEntries int     `json:"total_cpd_entries"`
	CoachingHours   float64 `json:"coaching_hours"`
	CPDHours        float64 `json:"cpd_hours"`
	PendingEmails   int     `json:"pending_emails"`
}
