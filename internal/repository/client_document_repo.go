package repository

import (
	"context"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ClientDocumentRepository struct {
	db DBTX
}

func NewClientDocumentRepository(db DBTX) *ClientDocumentRepository {
	return &ClientDocumentRepository{db: db}
}

func (r *ClientDocumentRepository) Create(ctx context.Context, doc *models.ClientDocument) error {
	query := `
		INSERT INTO client_documents (client_id, user_id, name, path, size, url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query, doc.ClientID, doc.UserID, doc.Name, doc.Path, doc.Size, doc.URL).
		Scan(&doc.ID, &doc.CreatedAt)
}

func (r *ClientDocumentRepository) ListByClient(
	ctx context.Context,
	userID uuid.UUID,
	clientID uuid.UUID,
) ([]models.ClientDocument, error) {
	query := `
		SELECT id, client_id, user_id, name, path, size, url, created_at
		FROM client_documents
		WHERE user_id = $1 AND client_id = $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]models.ClientDocument, 0)
	for rows.Next() {
		var doc models.ClientDocument
		if err := rows.Scan(&doc.ID, &doc.ClientID, &doc.UserID, &doc.Name, &doc.Path, &doc.Size, &doc.URL, &doc.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *ClientDocumentRepository) GetByID(ctx context.Context, userID, docID uuid.UUID) (*models.ClientDocument, error) {
	query := `
		SELECT id, client_id, user_id, name, path, size, url, created_at
		FROM client_documents
		WHERE id = $1 AND user_id = $2
	`
	var doc models.ClientDocument
	err := r.db.QueryRow(ctx, query, docID, userID).
		Scan(&doc.ID, &doc.ClientID, &doc.UserID, &doc.Name, &doc.Path, &doc.Size, &doc.URL, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *ClientDocumentRepository) Delete(ctx context.Context, userID, docID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM client_documents WHERE id = $1 AND user_id = $2`, docID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
