package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const profileColumns = `
	id, name, email, icf_level, currency, country, to_char(cpd_renewal_date, 'YYYY-MM-DD'), role,
	subscription_plan, subscription_status, billing_period, push_notification_types,
	email_notification_types, last_seen_at, created_at, updated_at
`

type UpdateProfileInput struct {
	Name           *string
	ICFLevel       *string
	Currency       *string
	Country        *string
	CPDRenewalDate *string
}

type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE id = $1"
	return scanProfile(r.db.QueryRow(ctx, query, id))
}

// CreateDefault inserts a free-plan profile for a user seen for the first
// time. An existing row is left untouched and returned.
func (r *ProfileRepository) CreateDefault(ctx context.Context, id uuid.UUID, email, name string) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, id, email, name); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *ProfileRepository) Update(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET name = COALESCE($2, name),
			icf_level = COALESCE($3, icf_level),
			currency = COALESCE($4, currency),
			country = COALESCE($5, country),
			cpd_renewal_date = COALESCE($6::date, cpd_renewal_date),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + profileColumns
	return scanProfile(r.db.QueryRow(ctx, query,
		id,
		input.Name,
		input.ICFLevel,
		input.Currency,
		input.Country,
		input.CPDRenewalDate,
	))
}

func (r *ProfileRepository) UpdateEmailNotificationTypes(ctx context.Context, id uuid.UUID, types []string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE profiles SET email_notification_types = $2, updated_at = NOW() WHERE id = $1`,
		id, nonNilStrings(types),
	)
	return err
}

func (r *ProfileRepository) UpdatePushNotificationTypes(ctx context.Context, id uuid.UUID, types []string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE profiles SET push_notification_types = $2, updated_at = NOW() WHERE id = $1`,
		id, nonNilStrings(types),
	)
	return err
}

func (r *ProfileRepository) UpdateSubscription(
	ctx context.Context,
	id uuid.UUID,
	plan string,
	status string,
	billingPeriod string,
) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET subscription_plan = $2,
			subscription_status = $3,
			billing_period = $4,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + profileColumns
	return scanProfile(r.db.QueryRow(ctx, query, id, plan, status, billingPeriod))
}

func (r *ProfileRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) (*models.Profile, error) {
	query := `UPDATE profiles SET role = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + profileColumns
	return scanProfile(r.db.QueryRow(ctx, query, id, role))
}

func (r *ProfileRepository) TouchLastSeen(ctx context.Context, id uuid.UUID, seenAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE profiles SET last_seen_at = GREATEST(COALESCE(last_seen_at, $2), $2) WHERE id = $1`,
		id, seenAt.UTC(),
	)
	return err
}

func (r *ProfileRepository) ListAll(ctx context.Context) ([]models.Profile, error) {
	return r.list(ctx, "SELECT "+profileColumns+" FROM profiles ORDER BY created_at ASC")
}

func (r *ProfileRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Profile, error) {
	if len(ids) == 0 {
		return []models.Profile{}, nil
	}
	return r.list(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = ANY($1) ORDER BY created_at ASC", ids)
}

func (r *ProfileRepository) list(ctx context.Context, query string, args ...any) ([]models.Profile, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]models.Profile, 0)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

type UserListFilter struct {
	Search string
	Page   int
	Limit  int
}

// ListSummaries returns one page of users with their entry counts and the
// total number of users matching the search.
func (r *ProfileRepository) ListSummaries(
	ctx context.Context,
	filter UserListFilter,
) ([]models.AdminUserSummary, int, error) {
	args := []any{}
	where := ""
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		where = "WHERE p.name ILIKE $1 OR p.email ILIKE $1"
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM profiles p " + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.email, p.role, p.icf_level, p.subscription_plan, p.subscription_status,
			   p.billing_period,
			   (SELECT COUNT(*) FROM sessions s WHERE s.user_id = p.id),
			   (SELECT COUNT(*) FROM cpd c WHERE c.user_id = p.id),
			   p.last_seen_at, p.created_at
		FROM profiles p
		%s
		ORDER BY p.created_at DESC, p.id ASC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]models.AdminUserSummary, 0)
	for rows.Next() {
		var user models.AdminUserSummary
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.Role,
			&user.ICFLevel,
			&user.SubscriptionPlan,
			&user.SubscriptionStatus,
			&user.BillingPeriod,
			&user.SessionCount,
			&user.CPDCount,
			&user.LastSeenAt,
			&user.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// DashboardStats aggregates platform totals. Users whose last_seen_at is
// after onlineSince count as online.
func (r *ProfileRepository) DashboardStats(ctx context.Context, onlineSince time.Time) (*models.DashboardStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM profiles),
			(SELECT COUNT(*) FROM profiles WHERE subscription_status IN ('active', 'trialing')),
			(SELECT COUNT(*) FROM profiles WHERE last_seen_at >= $1),
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM cpd),
			(SELECT COALESCE(SUM(duration), 0)::float8 / 60 FROM sessions),
			(SELECT COALESCE(SUM(hours), 0)::float8 FROM cpd),
			(SELECT COUNT(*) FROM scheduled_emails WHERE status = 'pending')
	`
	var stats models.DashboardStats
	err := r.db.QueryRow(ctx, query, onlineSince.UTC()).Scan(
		&stats.TotalUsers,
		&stats.SubscribedUsers,
		&stats.OnlineUsers,
		&stats.TotalSessions,
		&stats.TotalCPDEntries,
		&stats.CoachingHours,
		&stats.CPDHours,
		&stats.PendingEmails,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var profile models.Profile
	err := row.Scan(
		&profile.ID,
		&profile.Name,
		&profile.Email,
		&profile.ICFLevel,
		&profile.Currency,
		&profile.Country,
		&profile.CPDRenewalDate,
		&profile.Role,
		&profile.SubscriptionPlan,
		&profile.SubscriptionStatus,
		&profile.BillingPeriod,
		&profile.PushNotificationTypes,
		&profile.EmailNotificationTypes,
		&profile.LastSeenAt,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
