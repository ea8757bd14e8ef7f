package repository

import (
	"context"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const clientColumns = `id, user_id, name, email, phone, notes, created_at, updated_at`

type ClientInput struct {
	Name  string
	Email string
	Phone string
	Notes string
}

type ClientRepository struct {
	db DBTX
}

func NewClientRepository(db DBTX) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(ctx context.Context, userID uuid.UUID, input ClientInput) (*models.Client, error) {
	query := `
		INSERT INTO clients (user_id, name, email, phone, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + clientColumns
	return scanClient(r.db.QueryRow(ctx, query, userID, input.Name, input.Email, input.Phone, input.Notes))
}

// FindByEmail matches the stored email exactly.
func (r *ClientRepository) FindByEmail(ctx context.Context, userID uuid.UUID, email string) (*models.Client, error) {
	query := "SELECT " + clientColumns + " FROM clients WHERE user_id = $1 AND email = $2 ORDER BY created_at ASC LIMIT 1"
	return scanClient(r.db.QueryRow(ctx, query, userID, email))
}

// FindByName matches the stored name exactly.
func (r *ClientRepository) FindByName(ctx context.Context, userID uuid.UUID, name string) (*models.Client, error) {
	query := "SELECT " + clientColumns + " FROM clients WHERE user_id = $1 AND name = $2 ORDER BY created_at ASC LIMIT 1"
	return scanClient(r.db.QueryRow(ctx, query, userID, name))
}

func (r *ClientRepository) GetByID(ctx context.Context, userID, clientID uuid.UUID) (*models.Client, error) {
	query := "SELECT " + clientColumns + " FROM clients WHERE id = $1 AND user_id = $2"
	return scanClient(r.db.QueryRow(ctx, query, clientID, userID))
}

// List returns the owner's clients ordered by name with their session counts.
func (r *ClientRepository) List(ctx context.Context, userID uuid.UUID) ([]models.Client, error) {
	query := `
		SELECT c.id, c.user_id, c.name, c.email, c.phone, c.notes, c.created_at, c.updated_at,
			   COUNT(s.id)
		FROM clients c
		LEFT JOIN sessions s ON s.client_id = c.id
		WHERE c.user_id = $1
		GROUP BY c.id
		ORDER BY c.name ASC, c.created_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]models.Client, 0)
	for rows.Next() {
		var client models.Client
		if err := rows.Scan(
			&client.ID,
			&client.UserID,
			&client.Name,
			&client.Email,
			&client.Phone,
			&client.Notes,
			&client.CreatedAt,
			&client.UpdatedAt,
			&client.SessionCount,
		); err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *ClientRepository) Update(
	ctx context.Context,
	userID uuid.UUID,
	clientID uuid.UUID,
	input ClientInput,
) (*models.Client, error) {
	query := `
		UPDATE clients
		SET name = $3, email = $4, phone = $5, notes = $6, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + clientColumns
	return scanClient(r.db.QueryRow(ctx, query, clientID, userID, input.Name, input.Email, input.Phone, input.Notes))
}

func (r *ClientRepository) Delete(ctx context.Context, userID, clientID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1 AND user_id = $2`, clientID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ClientRepository) DeleteByIDs(ctx context.Context, userID uuid.UUID, clientIDs []uuid.UUID) (int, error) {
	if len(clientIDs) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE user_id = $1 AND id = ANY($2)`, userID, clientIDs)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanClient(row pgx.Row) (*models.Client, error) {
	var client models.Client
	err := row.Scan(
		&client.ID,
		&client.UserID,
		&client.Name,
		&client.Email,
		&client.Phone,
		&client.Notes,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &client, nil
}
