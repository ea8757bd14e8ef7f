package repository

import (
	"context"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ScheduledEmailLease is how long a claimed email may stay in processing
// before another run takes it over.
const ScheduledEmailLease = 15 * time.Minute

const scheduledEmailColumns = `
	id, created_by, subject, html_body, recipient_type, recipient_user_ids, scheduled_for, status,
	sent_count, failed_count, error_details, sent_at, created_at
`

type ScheduledEmailRepository struct {
	db DBTX
}

func NewScheduledEmailRepository(db DBTX) *ScheduledEmailRepository {
	return &ScheduledEmailRepository{db: db}
}

func (r *ScheduledEmailRepository) Create(ctx context.Context, email *models.ScheduledEmail) error {
	recipients := email.RecipientUserIDs
	if recipients == nil {
		recipients = []uuid.UUID{}
	}
	query := `
		INSERT INTO scheduled_emails (created_by, subject, html_body, recipient_type, recipient_user_ids, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, status, sent_count, failed_count, created_at
	`
	return r.db.QueryRow(ctx, query,
		email.CreatedBy,
		email.Subject,
		email.HTMLBody,
		email.RecipientType,
		recipients,
		email.ScheduledFor.UTC(),
	).Scan(&email.ID, &email.Status, &email.SentCount, &email.FailedCount, &email.CreatedAt)
}

func (r *ScheduledEmailRepository) List(ctx context.Context, status string) ([]models.ScheduledEmail, error) {
	query := "SELECT " + scheduledEmailColumns + " FROM scheduled_emails"
	args := []any{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY scheduled_for DESC"
	return r.list(ctx, query, args...)
}

// ClaimDue moves every due email to processing and returns it. Pending rows
// qualify, and so do processing rows whose claim is older than
// ScheduledEmailLease. Rows locked by a concurrent run are skipped.
func (r *ScheduledEmailRepository) ClaimDue(ctx context.Context, now time.Time) ([]models.ScheduledEmail, error) {
	query := `
		UPDATE scheduled_emails
		SET status = 'processing', claimed_at = $1
		WHERE id IN (
			SELECT id
			FROM scheduled_emails
			WHERE scheduled_for <= $1
				AND (
					status = 'pending'
					OR (status = 'processing' AND (claimed_at IS NULL OR claimed_at < $2))
				)
			ORDER BY scheduled_for ASC
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + scheduledEmailColumns
	now = now.UTC()
	return r.list(ctx, query, now, now.Add(-ScheduledEmailLease))
}

func (r *ScheduledEmailRepository) MarkProcessed(
	ctx context.Context,
	id uuid.UUID,
	status string,
	report models.DeliveryReport,
	errorDetails *string,
	sentAt time.Time,
) error {
	query := `
		UPDATE scheduled_emails
		SET status = $2, sent_count = $3, failed_count = $4, error_details = $5, sent_at = $6
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id, status, report.Sent, report.Failed, errorDetails, sentAt.UTC())
	return err
}

// DeletePending removes an email that has not been picked up yet.
func (r *ScheduledEmailRepository) DeletePending(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM scheduled_emails WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ScheduledEmailRepository) list(ctx context.Context, query string, args ...any) ([]models.ScheduledEmail, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := make([]models.ScheduledEmail, 0)
	for rows.Next() {
		var email models.ScheduledEmail
		if err := rows.Scan(
			&email.ID,
			&email.CreatedBy,
			&email.Subject,
			&email.HTMLBody,
			&email.RecipientType,
			&email.RecipientUserIDs,
			&email.ScheduledFor,
			&email.Status,
			&email.SentCount,
			&email.FailedCount,
			&email.ErrorDetails,
			&email.SentAt,
			&email.CreatedAt,
		); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return emails, nil
}
