package services

import (
	"context"
	"math"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/google/uuid"
)

type CredentialRequirement struct {
	Target        string  `json:"target"`
	CoachingHours float64 `json:"coaching_hours"`
	CPDHours      float64 `json:"cpd_hours"`
	Renewal       bool    `json:"renewal"`
}

type CredentialProgress struct {
	CurrentLevel      string                `json:"current_level"`
	Next              CredentialRequirement `json:"next"`
	CoachingHours     float64               `json:"coaching_hours"`
	CPDHours          float64               `json:"cpd_hours"`
	CoachingPercent   float64               `json:"coaching_percent"`
	CPDPercent        float64               `json:"cpd_percent"`
	CoachingHoursLeft float64               `json:"coaching_hours_left"`
	CPDHoursLeft      float64               `json:"cpd_hours_left"`
	RequirementsMet   bool                  `json:"requirements_met"`
}

var credentialLadder = map[string]CredentialRequirement{
	models.ICFLevelNone: {Target: models.ICFLevelACC, CoachingHours: 100, CPDHours: 60},
	models.ICFLevelACC:  {Target: models.ICFLevelPCC, CoachingHours: 500, CPDHours: 125},
	models.ICFLevelPCC:  {Target: models.ICFLevelMCC, CoachingHours: 2500, CPDHours: 200},
	models.ICFLevelMCC:  {Target: models.ICFLevelMCC, CoachingHours: 2500, CPDHours: 40, Renewal: true},
}

// ComputeCredentialProgress measures hours against the next ICF level. MCC
// holders are measured against the renewal requirement. Unknown levels are
// treated as no credential.
func ComputeCredentialProgress(level string, coachingHours, cpdHours float64) CredentialProgress {
	requirement, ok := credentialLadder[level]
	if !ok {
		level = models.ICFLevelNone
		requirement = credentialLadder[level]
	}

	progress := CredentialProgress{
		CurrentLevel:      level,
		Next:              requirement,
		CoachingHours:     roundHours(coachingHours),
		CPDHours:          roundHours(cpdHours),
		CoachingPercent:   percentOf(coachingHours, requirement.CoachingHours),
		CPDPercent:        percentOf(cpdHours, requirement.CPDHours),
		CoachingHoursLeft: roundHours(math.Max(0, requirement.CoachingHours-coachingHours)),
		CPDHoursLeft:      roundHours(math.Max(0, requirement.CPDHours-cpdHours)),
	}
	progress.RequirementsMet = progress.CoachingHoursLeft == 0 && progress.CPDHoursLeft == 0
	return progress
}

func percentOf(value, target float64) float64 {
	if target <= 0 || value <= 0 {
		return 0
	}
	return math.Min(100, math.Round(value/target*1000)/10)
}

func roundHours(value float64) float64 {
	return math.Round(value*100) / 100
}

type coachingHoursReader interface {
	TotalHours(ctx context.Context, userID uuid.UUID) (float64, error)
}

type cpdSummaryReader interface {
	Summary(ctx context.Context, userID uuid.UUID, dates repository.DateRange) (*models.CPDSummary, error)
}

type ProgressService struct {
	sessions coachingHoursReader
	cpd      cpdSummaryReader
}

func NewProgressService(sessions coachingHoursReader, cpd cpdSummaryReader) *ProgressService {
	return &ProgressService{sessions: sessions, cpd: cpd}
}

// Progress counts all logged coaching hours. MCC renewal counts CCE hours
// only, every other level counts all CPD hours.
func (s *ProgressService) Progress(ctx context.Context, userID uuid.UUID, level string) (*CredentialProgress, error) {
	coachingHours, err := s.sessions.TotalHours(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary, err := s.cpd.Summary(ctx, userID, repository.DateRange{})
	if err != nil {
		return nil, err
	}

	cpdHours := summary.TotalHours
	if level == models.ICFLevelMCC {
		cpdHours = summary.CCEHours
	}
	progress := ComputeCredentialProgress(level, coachingHours, cpdHours)
	return &progress, nil
}
