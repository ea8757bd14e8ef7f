package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/google/uuid"
)

type clientStore interface {
	Create(ctx context.Context, userID uuid.UUID, input repository.ClientInput) (*models.Client, error)
	GetByID(ctx context.Context, userID, clientID uuid.UUID) (*models.Client, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Client, error)
	Update(ctx context.Context, userID, clientID uuid.UUID, input repository.ClientInput) (*models.Client, error)
	Delete(ctx context.Context, userID, clientID uuid.UUID) error
}

type documentStore interface {
	Create(ctx context.Context, doc *models.ClientDocument) error
	ListByClient(ctx context.Context, userID, clientID uuid.UUID) ([]models.ClientDocument, error)
	GetByID(ctx context.Context, userID, docID uuid.UUID) (*models.ClientDocument, error)
	Delete(ctx context.Context, userID, docID uuid.UUID) error
}

type ClientService struct {
	clientRepo   clientStore
	documentRepo documentStore
	storage      StorageService
}

func NewClientService(clientRepo clientStore, documentRepo documentStore, storage StorageService) *ClientService {
	return &ClientService{
		clientRepo:   clientRepo,
		documentRepo: documentRepo,
		storage:      storage,
	}
}

type DocumentFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// ClientCreation reports a new client and the outcome of each document
// uploaded with it. The client is kept even when uploads fail.
type ClientCreation struct {
	Client   *models.Client          `json:"client"`
	Uploaded []models.ClientDocument `json:"uploaded"`
	Failed   []DocumentFailure       `json:"failed"`
}

func (s *ClientService) CreateClient(
	ctx context.Context,
	userID uuid.UUID,
	input repository.ClientInput,
	uploads []Upload,
) (*ClientCreation, error) {
	if err := normalizeClientInput(&input); err != nil {
		return nil, err
	}
	client, err := s.clientRepo.Create(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	creation := &ClientCreation{
		Client:   client,
		Uploaded: make([]models.ClientDocument, 0, len(uploads)),
		Failed:   make([]DocumentFailure, 0),
	}
	for _, upload := range uploads {
		doc, err := s.storeDocument(ctx, userID, client.ID, upload)
		if err != nil {
			creation.Failed = append(creation.Failed, DocumentFailure{Name: upload.Filename, Error: err.Error()})
			continue
		}
		creation.Uploaded = append(creation.Uploaded, *doc)
	}
	return creation, nil
}

func (s *ClientService) ListClients(ctx context.Context, userID uuid.UUID) ([]models.Client, error) {
	return s.clientRepo.List(ctx, userID)
}

func (s *ClientService) GetClient(ctx context.Context, userID, clientID uuid.UUID) (*models.Client, error) {
	return s.clientRepo.GetByID(ctx, userID, clientID)
}

func (s *ClientService) UpdateClient(
	ctx context.Context,
	userID uuid.UUID,
	clientID uuid.UUID,
	input repository.ClientInput,
) (*models.Client, error) {
	if err := normalizeClientInput(&input); err != nil {
		return nil, err
	}
	return s.clientRepo.Update(ctx, userID, clientID, input)
}

// DeleteClient removes the client and its documents. Sessions keep their
// denormalized client name and lose only the link.
func (s *ClientService) DeleteClient(ctx context.Context, userID, clientID uuid.UUID) error {
	if s.storage != nil {
		docs, err := s.documentRepo.ListByClient(ctx, userID, clientID)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if err := s.storage.Delete(ctx, doc.Path); err != nil {
				slog.Warn("client document left in storage", "client_id", clientID, "path", doc.Path, "error", err)
			}
		}
	}
	return s.clientRepo.Delete(ctx, userID, clientID)
}

func (s *ClientService) AddDocument(
	ctx context.Context,
	userID uuid.UUID,
	clientID uuid.UUID,
	upload Upload,
) (*models.ClientDocument, error) {
	if _, err := s.clientRepo.GetByID(ctx, userID, clientID); err != nil {
		return nil, err
	}
	return s.storeDocument(ctx, userID, clientID, upload)
}

func (s *ClientService) ListDocuments(ctx context.Context, userID, clientID uuid.UUID) ([]models.ClientDocument, error) {
	return s.documentRepo.ListByClient(ctx, userID, clientID)
}

func (s *ClientService) DeleteDocument(ctx context.Context, userID, docID uuid.UUID) error {
	if s.storage == nil {
		return ErrStorageUnavailable
	}
	doc, err := s.documentRepo.GetByID(ctx, userID, docID)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, doc.Path); err != nil {
		return err
	}
	return s.documentRepo.Delete(ctx, userID, docID)
}

func (s *ClientService) DocumentURL(ctx context.Context, userID, docID uuid.UUID) (string, error) {
	if s.storage == nil {
		return "", ErrStorageUnavailable
	}
	doc, err := s.documentRepo.GetByID(ctx, userID, docID)
	if err != nil {
		return "", err
	}
	return s.storage.SignedURL(ctx, doc.Path)
}

// storeDocument uploads the file and records it, removing the stored object
// again when the record cannot be written.
func (s *ClientService) storeDocument(
	ctx context.Context,
	userID uuid.UUID,
	clientID uuid.UUID,
	upload Upload,
) (*models.ClientDocument, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}
	if err := upload.validate(); err != nil {
		return nil, err
	}

	object, err := s.storage.Upload(ctx, upload.Content, "clients/"+clientID.String(), storedFilename(upload.Filename))
	if err != nil {
		return nil, err
	}

	doc := &models.ClientDocument{
		ClientID: clientID,
		UserID:   userID,
		Name:     upload.Filename,
		Path:     object.Path,
		Size:     object.Size,
		URL:      object.URL,
	}
	if err := s.documentRepo.Create(ctx, doc); err != nil {
		if cleanupErr := s.storage.Delete(ctx, object.Path); cleanupErr != nil {
			return nil, errors.Join(err, fmt.Errorf("cleanup failed: %w", cleanupErr))
		}
		return nil, err
	}
	return doc, nil
}

func normalizeClientInput(input *repository.ClientInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	if input.Name == "" {
		return ErrInvalidInput
	}
	return nil
}
