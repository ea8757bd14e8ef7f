package repository

import (
	"context"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const mentoringColumns = `
	id, user_id, session_type, to_char(date, 'YYYY-MM-DD'), duration, provider_name, credential_level,
	delivery_type, focus_area, notes, file_url, is_formal_supervision, created_at, updated_at
`

type MentoringInput struct {
	SessionType         string
	Date                string
	Duration            int
	ProviderName        string
	CredentialLevel     string
	DeliveryType        string
	FocusArea           string
	Notes               string
	FileURL             *string
	IsFormalSupervision bool
}

type MentoringRepository struct {
	db DBTX
}

func NewMentoringRepository(db DBTX) *MentoringRepository {
	return &MentoringRepository{db: db}
}

func (r *MentoringRepository) Create(ctx context.Context, userID uuid.UUID, input MentoringInput) (*models.MentoringSession, error) {
	query := `
		INSERT INTO mentoring_supervision (
			user_id, session_type, date, duration, provider_name, credential_level, delivery_type,
			focus_area, notes, file_url, is_formal_supervision
		)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + mentoringColumns
	return scanMentoringSession(r.db.QueryRow(ctx, query,
		userID,
		input.SessionType,
		input.Date,
		input.Duration,
		input.ProviderName,
		input.CredentialLevel,
		input.DeliveryType,
		input.FocusArea,
		input.Notes,
		input.FileURL,
		input.IsFormalSupervision,
	))
}

func (r *MentoringRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.MentoringSession, error) {
	query := "SELECT " + mentoringColumns + " FROM mentoring_supervision WHERE id = $1 AND user_id = $2"
	return scanMentoringSession(r.db.QueryRow(ctx, query, id, userID))
}

// List returns the owner's records, optionally narrowed to one session type.
func (r *MentoringRepository) List(ctx context.Context, userID uuid.UUID, sessionType string) ([]models.MentoringSession, error) {
	query := "SELECT " + mentoringColumns + " FROM mentoring_supervision WHERE user_id = $1"
	args := []any{userID}
	if sessionType != "" {
		query += " AND session_type = $2"
		args = append(args, sessionType)
	}
	query += " ORDER BY date DESC, created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.MentoringSession, 0)
	for rows.Next() {
		record, err := scanMentoringSession(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *MentoringRepository) Update(
	ctx context.Context,
	userID uuid.UUID,
	id uuid.UUID,
	input MentoringInput,
) (*models.MentoringSession, error) {
	query := `
		UPDATE mentoring_supervision
		SET session_type = $3,
			date = $4::date,
			duration = $5,
			provider_name = $6,
			credential_level = $7,
			delivery_type = $8,
			focus_area = $9,
			notes = $10,
			file_url = COALESCE($11, file_url),
			is_formal_supervision = $12,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + mentoringColumns
	return scanMentoringSession(r.db.QueryRow(ctx, query,
		id,
		userID,
		input.SessionType,
		input.Date,
		input.Duration,
		input.ProviderName,
		input.CredentialLevel,
		input.DeliveryType,
		input.FocusArea,
		input.Notes,
		input.FileURL,
		input.IsFormalSupervision,
	))
}

func (r *MentoringRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM mentoring_supervision WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanMentoringSession(row pgx.Row) (*models.MentoringSession, error) {
	var record models.MentoringSession
	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.SessionType,
		&record.Date,
		&record.Duration,
		&record.ProviderName,
		&record.CredentialLevel,
		&record.DeliveryType,
		&record.FocusArea,
		&record.Notes,
		&record.FileURL,
		&record.IsFormalSupervision,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
