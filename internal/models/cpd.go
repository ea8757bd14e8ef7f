package models

import (
	"time"

	"github.com/google/uuid"
)

type CPDEntry struct {
	ID                       uuid.UUID `json:"id"`
	UserID                   uuid.UUID `json:"user_id"`
	Title                    string    `json:"title"`
	ActivityDate             string    `json:"activity_date"`
	Hours                    float64   `json:"hours"`
	CPDType                  string    `json:"cpd_type"`
	LearningMethod           string    `json:"learning_method"`
	Provider                 string    `json:"provider"`
	Description              string    `json:"description"`
	KeyLearnings             string    `json:"key_learnings"`
	Application              string    `json:"application"`
	ICFCompetencies          []string  `json:"icf_competencies"`
	DocumentType             string    `json:"document_type"`
	DocumentURL              *string   `json:"document_url"`
	CoreCompetency           bool      `json:"core_competency"`
	ResourceDevelopment      bool      `json:"resource_development"`
	CoreCompetencyHours      float64   `json:"core_competency_hours"`
	ResourceDevelopmentHours float64   `json:"resource_development_hours"`
	IsICFCCE                 bool      `json:"is_icf_cce"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

type CPDSummary struct {
	Entries                  int     `json:"entries"`
	TotalHours               float64 `json:"total_hours"`
	CCEHours                 float64 `json:"cce_hours"`
	CoreCompetencyHours      float64 `json:"core_competency_hours"`
	ResourceDevelopmentHours float64 `json:"resource_development_hours"`
}

const (
	MentoringTypeMentoring   = "mentoring"
	MentoringTypeSupervision = "supervision"
)

type MentoringSession struct {
	ID                  uuid.UUID `json:"id"`
	UserID              uuid.UUID `json:"user_id"`
	SessionType         string    `json:"session_type"`
	Date                string    `json:"date"`
	Duration            int       `json:"duration"`
	ProviderName        string    `json:"provider_name"`
	CredentialLevel     string    `json:"credential_level"`
	DeliveryType        string    `json:"delivery_type"`
	FocusArea           string    `json:"focus_area"`
	Notes               string    `json:"notes"`
	FileURL             *string   `json:"file_url"`
	IsFormalSupervision bool      `json:"is_formal_supervision"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
