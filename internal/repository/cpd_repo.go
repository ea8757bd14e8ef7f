package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const cpdColumns = `
	id, user_id, title, to_char(activity_date, 'YYYY-MM-DD'), hours, cpd_type, learning_method, provider,
	description, key_learnings, application, icf_competencies, document_type, document_url,
	core_competency, resource_development, core_competency_hours, resource_development_hours,
	is_icf_cce, created_at, updated_at
`

type CPDInput struct {
	Title                    string
	ActivityDate             string
	Hours                    float64
	CPDType                  string
	LearningMethod           string
	Provider                 string
	Description              string
	KeyLearnings             string
	Application              string
	ICFCompetencies          []string
	DocumentType             string
	DocumentURL              *string
	CoreCompetency           bool
	ResourceDevelopment      bool
	CoreCompetencyHours      float64
	ResourceDevelopmentHours float64
	IsICFCCE                 bool
}

type DateRange struct {
	From string
	To   string
}

func (d DateRange) clause(column string, args []any) (string, []any) {
	parts := make([]string, 0, 2)
	if from := strings.TrimSpace(d.From); from != "" {
		args = append(args, from)
		parts = append(parts, fmt.Sprintf("%s >= $%d::date", column, len(args)))
	}
	if to := strings.TrimSpace(d.To); to != "" {
		args = append(args, to)
		parts = append(parts, fmt.Sprintf("%s <= $%d::date", column, len(args)))
	}
	if len(parts) == 0 {
		return "", args
	}
	return " AND " + strings.Join(parts, " AND "), args
}

type CPDRepository struct {
	db DBTX
}

func NewCPDRepository(db DBTX) *CPDRepository {
	return &CPDRepository{db: db}
}

func (r *CPDRepository) Create(ctx context.Context, userID uuid.UUID, input CPDInput) (*models.CPDEntry, error) {
	query := `
		INSERT INTO cpd (
			user_id, title, activity_date, hours, cpd_type, learning_method, provider, description,
			key_learnings, application, icf_competencies, document_type, document_url, core_competency,
			resource_development, core_competency_hours, resource_development_hours, is_icf_cce
		)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING ` + cpdColumns
	return scanCPDEntry(r.db.QueryRow(ctx, query,
		userID,
		input.Title,
		input.ActivityDate,
		input.Hours,
		input.CPDType,
		input.LearningMethod,
		input.Provider,
		input.Description,
		input.KeyLearnings,
		input.Application,
		nonNilStrings(input.ICFCompetencies),
		input.DocumentType,
		input.DocumentURL,
		input.CoreCompetency,
		input.ResourceDevelopment,
		input.CoreCompetencyHours,
		input.ResourceDevelopmentHours,
		input.IsICFCCE,
	))
}

func (r *CPDRepository) GetByID(ctx context.Context, userID, entryID uuid.UUID) (*models.CPDEntry, error) {
	query := "SELECT " + cpdColumns + " FROM cpd WHERE id = $1 AND user_id = $2"
	return scanCPDEntry(r.db.QueryRow(ctx, query, entryID, userID))
}

func (r *CPDRepository) List(ctx context.Context, userID uuid.UUID, dates DateRange) ([]models.CPDEntry, error) {
	clause, args := dates.clause("activity_date", []any{userID})
	query := "SELECT " + cpdColumns + " FROM cpd WHERE user_id = $1" + clause + " ORDER BY activity_date DESC, created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.CPDEntry, 0)
	for rows.Next() {
		entry, err := scanCPDEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *CPDRepository) Update(
	ctx context.Context,
	userID uuid.UUID,
	entryID uuid.UUID,
	input CPDInput,
) (*models.CPDEntry, error) {
	query := `
		UPDATE cpd
		SET title = $3,
			activity_date = $4::date,
			hours = $5,
			cpd_type = $6,
			learning_method = $7,
			provider = $8,
			description = $9,
			key_learnings = $10,
			application = $11,
			icf_competencies = $12,
			document_type = $13,
			document_url = COALESCE($14, document_url),
			core_competency = $15,
			resource_development = $16,
			core_competency_hours = $17,
			resource_development_hours = $18,
			is_icf_cce = $19,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + cpdColumns
	return scanCPDEntry(r.db.QueryRow(ctx, query,
		entryID,
		userID,
		input.Title,
		input.ActivityDate,
		input.Hours,
		input.CPDType,
		input.LearningMethod,
		input.Provider,
		input.Description,
		input.KeyLearnings,
		input.Application,
		nonNilStrings(input.ICFCompetencies),
		input.DocumentType,
		input.DocumentURL,
		input.CoreCompetency,
		input.ResourceDevelopment,
		input.CoreCompetencyHours,
		input.ResourceDevelopmentHours,
		input.IsICFCCE,
	))
}

func (r *CPDRepository) Delete(ctx context.Context, userID, entryID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cpd WHERE id = $1 AND user_id = $2`, entryID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *CPDRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM cpd WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

func (r *CPDRepository) Summary(ctx context.Context, userID uuid.UUID, dates DateRange) (*models.CPDSummary, error) {
	clause, args := dates.clause("activity_date", []any{userID})
	query := `
		SELECT COUNT(*),
			   COALESCE(SUM(hours), 0)::float8,
			   COALESCE(SUM(hours) FILTER (WHERE is_icf_cce), 0)::float8,
			   COALESCE(SUM(core_competency_hours), 0)::float8,
			   COALESCE(SUM(resource_development_hours), 0)::float8
		FROM cpd
		WHERE user_id = $1` + clause

	var summary models.CPDSummary
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&summary.Entries,
		&summary.TotalHours,
		&summary.CCEHours,
		&summary.CoreCompetencyHours,
		&summary.ResourceDevelopmentHours,
	)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func scanCPDEntry(row pgx.Row) (*models.CPDEntry, error) {
	var entry models.CPDEntry
	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Title,
		&entry.ActivityDate,
		&entry.Hours,
		&entry.CPDType,
		&entry.LearningMethod,
		&entry.Provider,
		&entry.Description,
		&entry.KeyLearnings,
		&entry.Application,
		&entry.ICFCompetencies,
		&entry.DocumentType,
		&entry.DocumentURL,
		&entry.CoreCompetency,
		&entry.ResourceDevelopment,
		&entry.CoreCompetencyHours,
		&entry.ResourceDevelopmentHours,
		&entry.IsICFCCE,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
