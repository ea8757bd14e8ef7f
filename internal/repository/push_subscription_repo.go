package repository

import (
	"context"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PushSubscriptionRepository struct {
	db DBTX
}

func NewPushSubscriptionRepository(db DBTX) *PushSubscriptionRepository {
	return &PushSubscriptionRepository{db: db}
}

func (r *PushSubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.PushSubscription, error) {
	query := `
		SELECT id, user_id, endpoint, p256dh, auth, notification_types, created_at, updated_at
		FROM push_subscriptions
		WHERE user_id = $1
	`
	var sub models.PushSubscription
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Endpoint,
		&sub.P256dh,
		&sub.Auth,
		&sub.NotificationTypes,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Upsert keeps one subscription per user; a new browser endpoint replaces
// the previous one.
func (r *PushSubscriptionRepository) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	query := `
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, notification_types)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET endpoint = EXCLUDED.endpoint,
			p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth,
			notification_types = EXCLUDED.notification_types,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		sub.UserID,
		sub.Endpoint,
		sub.P256dh,
		sub.Auth,
		nonNilStrings(sub.NotificationTypes),
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

func (r *PushSubscriptionRepository) UpdateTypes(ctx context.Context, userID uuid.UUID, types []string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE push_subscriptions SET notification_types = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, nonNilStrings(types),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PushSubscriptionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM push_subscriptions WHERE user_id = $1`, userID)
	return err
}

func (r *PushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	return err
}
