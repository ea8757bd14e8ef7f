package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `
	id, user_id, client_id, client_name, to_char(date, 'YYYY-MM-DD'), to_char(finish_date, 'YYYY-MM-DD'),
	duration, types, payment_type, payment_amount, focus_area, key_outcomes, client_progress,
	additional_notes, coaching_tools, icf_competencies, calendly_booking_id, created_at, updated_at
`

const insertSessionQuery = `
	INSERT INTO sessions (
		user_id, client_id, client_name, date, finish_date, duration, types, payment_type, payment_amount,
		focus_area, key_outcomes, client_progress, additional_notes, coaching_tools, icf_competencies,
		calendly_booking_id
	)
	VALUES ($1, $2, $3, $4::date, $5::date, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
`

type SessionInput struct {
	ClientID          *uuid.UUID
	ClientName        string
	Date              string
	FinishDate        *string
	Duration          int
	Types             []string
	PaymentType       string
	PaymentAmount     *float64
	FocusArea         string
	KeyOutcomes       string
	ClientProgress    string
	AdditionalNotes   string
	CoachingTools     []string
	ICFCompetencies   []string
	CalendlyBookingID *string
}

func (in SessionInput) args(userID uuid.UUID) []any {
	return []any{
		userID,
		in.ClientID,
		in.ClientName,
		in.Date,
		in.FinishDate,
		in.Duration,
		nonNilStrings(in.Types),
		in.PaymentType,
		in.PaymentAmount,
		in.FocusArea,
		in.KeyOutcomes,
		in.ClientProgress,
		in.AdditionalNotes,
		nonNilStrings(in.CoachingTools),
		nonNilStrings(in.ICFCompetencies),
		in.CalendlyBookingID,
	}
}

type SessionListFilter struct {
	UserID   uuid.UUID
	ClientID *uuid.UUID
	From     string
	To       string
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, userID uuid.UUID, input SessionInput) (*models.Session, error) {
	query := insertSessionQuery + " RETURNING " + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, input.args(userID)...))
}

// BulkInsert queues every session in one pgx batch and returns how many rows
// were written before the first failure.
func (r *SessionRepository) BulkInsert(ctx context.Context, userID uuid.UUID, inputs []SessionInput) (int, error) {
	if len(inputs) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, input := range inputs {
		batch.Queue(insertSessionQuery, input.args(userID)...)
	}

	results := r.db.SendBatch(ctx, batch)
	inserted := 0
	for range inputs {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return inserted, err
		}
		inserted++
	}
	return inserted, results.Close()
}

// Exists reports whether the owner already has a session with exactly this
// client name, date and duration.
func (r *SessionRepository) Exists(
	ctx context.Context,
	userID uuid.UUID,
	clientName string,
	date string,
	duration int,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM sessions
			WHERE user_id = $1
			  AND client_name = $2
			  AND date = $3::date
			  AND duration = $4
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, clientName, date, duration).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, userID, sessionID uuid.UUID) (*models.Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE id = $1 AND user_id = $2"
	return scanSession(r.db.QueryRow(ctx, query, sessionID, userID))
}

func (r *SessionRepository) List(ctx context.Context, filter SessionListFilter) ([]models.Session, error) {
	args := []any{filter.UserID}
	whereParts := []string{"user_id = $1"}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		whereParts = append(whereParts, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if from := strings.TrimSpace(filter.From); from != "" {
		args = append(args, from)
		whereParts = append(whereParts, fmt.Sprintf("date >= $%d::date", len(args)))
	}
	if to := strings.TrimSpace(filter.To); to != "" {
		args = append(args, to)
		whereParts = append(whereParts, fmt.Sprintf("date <= $%d::date", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE %s
		ORDER BY date DESC, created_at DESC
	`, sessionColumns, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) Update(
	ctx context.Context,
	userID uuid.UUID,
	sessionID uuid.UUID,
	input SessionInput,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET client_id = $3,
			client_name = $4,
			date = $5::date,
			finish_date = $6::date,
			duration = $7,
			types = $8,
			payment_type = $9,
			payment_amount = $10,
			focus_area = $11,
			key_outcomes = $12,
			client_progress = $13,
			additional_notes = $14,
			coaching_tools = $15,
			icf_competencies = $16,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query,
		sessionID,
		userID,
		input.ClientID,
		input.ClientName,
		input.Date,
		input.FinishDate,
		input.Duration,
		nonNilStrings(input.Types),
		input.PaymentType,
		input.PaymentAmount,
		input.FocusArea,
		input.KeyOutcomes,
		input.ClientProgress,
		input.AdditionalNotes,
		nonNilStrings(input.CoachingTools),
		nonNilStrings(input.ICFCompetencies),
	))
}

func (r *SessionRepository) Delete(ctx context.Context, userID, sessionID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteByIDs removes the owner's sessions and returns the distinct client ids
// they referenced.
func (r *SessionRepository) DeleteByIDs(
	ctx context.Context,
	userID uuid.UUID,
	sessionIDs []uuid.UUID,
) (int, []uuid.UUID, error) {
	if len(sessionIDs) == 0 {
		return 0, nil, nil
	}

	query := `
		DELETE FROM sessions
		WHERE user_id = $1 AND id = ANY($2)
		RETURNING client_id
	`
	rows, err := r.db.Query(ctx, query, userID, sessionIDs)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	deleted := 0
	seen := make(map[uuid.UUID]struct{})
	clientIDs := make([]uuid.UUID, 0)
	for rows.Next() {
		var clientID *uuid.UUID
		if err := rows.Scan(&clientID); err != nil {
			return 0, nil, err
		}
		deleted++
		if clientID == nil {
			continue
		}
		if _, ok := seen[*clientID]; ok {
			continue
		}
		seen[*clientID] = struct{}{}
		clientIDs = append(clientIDs, *clientID)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}
	return deleted, clientIDs, nil
}

func (r *SessionRepository) ListBookingIDs(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx,
		`SELECT calendly_booking_id FROM sessions WHERE user_id = $1 AND calendly_booking_id IS NOT NULL`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (r *SessionRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sessions WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

// TotalHours sums session durations, in hours.
func (r *SessionRepository) TotalHours(ctx context.Context, userID uuid.UUID) (float64, error) {
	var hours float64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(duration), 0)::float8 / 60 FROM sessions WHERE user_id = $1`,
		userID,
	).Scan(&hours)
	return hours, err
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.ClientID,
		&session.ClientName,
		&session.Date,
		&session.FinishDate,
		&session.Duration,
		&session.Types,
		&session.PaymentType,
		&session.PaymentAmount,
		&session.FocusArea,
		&session.KeyOutcomes,
		&session.ClientProgress,
		&session.AdditionalNotes,
		&session.CoachingTools,
		&session.ICFCompetencies,
		&session.CalendlyBookingID,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
