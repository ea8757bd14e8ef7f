package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/importer"
	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ImportResult struct {
	RowsRead        int `json:"rows_read"`
	RowsSkipped     int `json:"rows_skipped"`
	ClientsAdded    int `json:"clients_added"`
	SessionsAdded   int `json:"sessions_added"`
	SessionsSkipped int `json:"sessions_skipped"`
}

// importStore is the persistence used by one import run. It is bound to the
// run's transaction.
type importStore interface {
	FindClientByEmail(ctx context.Context, userID uuid.UUID, email string) (*models.Client, error)
	FindClientByName(ctx context.Context, userID uuid.UUID, name string) (*models.Client, error)
	CreateClient(ctx context.Context, userID uuid.UUID, input repository.ClientInput) (*models.Client, error)
	SessionExists(ctx context.Context, userID uuid.UUID, clientName, date string, duration int) (bool, error)
	InsertSessions(ctx context.Context, userID uuid.UUID, inputs []repository.SessionInput) (int, error)
}

type repoImportStore struct {
	clients  *repository.ClientRepository
	sessions *repository.SessionRepository
}

func newRepoImportStore(db repository.DBTX) importStore {
	return &repoImportStore{
		clients:  repository.NewClientRepository(db),
		sessions: repository.NewSessionRepository(db),
	}
}

func (s *repoImportStore) FindClientByEmail(ctx context.Context, userID uuid.UUID, email string) (*models.Client, error) {
	return s.clients.FindByEmail(ctx, userID, email)
}

func (s *repoImportStore) FindClientByName(ctx context.Context, userID uuid.UUID, name string) (*models.Client, error) {
	return s.clients.FindByName(ctx, userID, name)
}

func (s *repoImportStore) CreateClient(ctx context.Context, userID uuid.UUID, input repository.ClientInput) (*models.Client, error) {
	return s.clients.Create(ctx, userID, input)
}

func (s *repoImportStore) SessionExists(ctx context.Context, userID uuid.UUID, clientName, date string, duration int) (bool, error) {
	return s.sessions.Exists(ctx, userID, clientName, date, duration)
}

func (s *repoImportStore) InsertSessions(ctx context.Context, userID uuid.UUID, inputs []repository.SessionInput) (int, error) {
	return s.sessions.BulkInsert(ctx, userID, inputs)
}

type ImportService struct {
	db           txBeginner
	entitlements entryGate
	newStore     func(repository.DBTX) importStore
	maxRows      int
	now          func() time.Time
}

func NewImportService(db txBeginner, entitlements entryGate, maxRows int) *ImportService {
	return &ImportService{
		db:           db,
		entitlements: entitlements,
		newStore:     newRepoImportStore,
		maxRows:      maxRows,
		now:          time.Now,
	}
}

// ImportSessions reads a coaching log spreadsheet and stores its sessions,
// creating any clients it names that the owner does not have yet. Client
// creation and session inserts commit together or not at all.
func (s *ImportService) ImportSessions(
	ctx context.Context,
	owner OwnerContext,
	filename string,
	data []byte,
) (*ImportResult, error) {
	table, err := importer.ReadTable(filename, data)
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFile) {
			return nil, ErrUnsupportedFile
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	rows := importer.ExtractRows(table)
	if s.maxRows > 0 && len(rows) > s.maxRows {
		return nil, ErrTooManyRows
	}
	if err := requireEntry(ctx, s.entitlements, owner); err != nil {
		return nil, err
	}

	now := s.now()
	batch := importer.Collect(rows, owner.Locale, now)
	result := &ImportResult{RowsRead: batch.RowsRead, RowsSkipped: batch.RowsSkipped}
	if batch.RowsSkipped > 0 {
		slog.Debug("import rows skipped", "user_id", owner.UserID, "skipped", batch.RowsSkipped, "read", batch.RowsRead)
	}
	if len(batch.Candidates) == 0 {
		return result, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	store := s.newStore(tx)

	clientIDs, created, err := reconcileClients(ctx, store, owner.UserID, batch.Clients, now)
	if err != nil {
		return nil, fmt.Errorf("reconcile clients: %w", err)
	}

	inserts, skipped, err := dedupeSessions(ctx, store, owner.UserID, batch.Candidates, clientIDs)
	if err != nil {
		return nil, fmt.Errorf("check duplicates: %w", err)
	}

	added, err := store.InsertSessions(ctx, owner.UserID, inserts)
	if err != nil {
		return nil, fmt.Errorf("insert sessions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	result.ClientsAdded = created
	result.SessionsAdded = added
	result.SessionsSkipped = skipped
	slog.Info("sessions imported",
		"user_id", owner.UserID,
		"sessions_added", added,
		"sessions_skipped", skipped,
		"clients_added", created,
	)
	return result, nil
}

// reconcileClients resolves each identity to an existing client by exact
// email, then exact name, creating it otherwise. Clients are created one at a
// time so later lookups in the same run see them.
func reconcileClients(
	ctx context.Context,
	store importStore,
	userID uuid.UUID,
	identities []importer.ClientIdentity,
	now time.Time,
) (map[string]uuid.UUID, int, error) {
	ids := make(map[string]uuid.UUID, len(identities))
	created := 0
	for _, identity := range identities {
		client, err := findClient(ctx, store, userID, identity)
		if err != nil {
			return nil, created, err
		}
		if client == nil {
			client, err = store.CreateClient(ctx, userID, repository.ClientInput{
				Name:  identity.Name,
				Email: identity.StoredEmail(),
				Notes: "Auto-created from session import on " + now.Format(dateLayout),
			})
			if err != nil {
				return nil, created, err
			}
			created++
		}
		ids[identity.Key()] = client.ID
	}
	return ids, created, nil
}

func findClient(
	ctx context.Context,
	store importStore,
	userID uuid.UUID,
	identity importer.ClientIdentity,
) (*models.Client, error) {
	if identity.Email != "" {
		client, err := store.FindClientByEmail(ctx, userID, identity.Email)
		if err == nil {
			return client, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}
	client, err := store.FindClientByName(ctx, userID, identity.Name)
	if err == nil {
		return client, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return nil, err
}

// dedupeSessions drops candidates matching a stored session or an earlier
// candidate of the same run on client name, date and duration.
func dedupeSessions(
	ctx context.Context,
	store importStore,
	userID uuid.UUID,
	candidates []importer.CandidateSession,
	clientIDs map[string]uuid.UUID,
) ([]repository.SessionInput, int, error) {
	inserts := make([]repository.SessionInput, 0, len(candidates))
	accepted := make(map[string]struct{}, len(candidates))
	skipped := 0
	for _, candidate := range candidates {
		key := candidate.DedupKey()
		if _, ok := accepted[key]; ok {
			skipped++
			continue
		}
		exists, err := store.SessionExists(ctx, userID, candidate.Client.Name, candidate.Date, candidate.Duration)
		if err != nil {
			return nil, 0, err
		}
		if exists {
			skipped++
			continue
		}
		accepted[key] = struct{}{}

		var clientID *uuid.UUID
		if id, ok := clientIDs[candidate.Client.Key()]; ok {
			clientID = &id
		}
		inserts = append(inserts, repository.SessionInput{
			ClientID:        clientID,
			ClientName:      candidate.Client.Name,
			Date:            candidate.Date,
			FinishDate:      candidate.FinishDate,
			Duration:        candidate.Duration,
			Types:           candidate.Types,
			PaymentType:     candidate.PaymentType,
			PaymentAmount:   candidate.PaymentAmount,
			AdditionalNotes: candidate.AdditionalNotes,
		})
	}
	return inserts, skipped, nil
}
