package services

import (
	"context"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
)

// stubTx records how a unit of work ended. Every other pgx.Tx method panics
// through the nil embedded interface.
type stubTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *stubTx) Commit(_ context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *stubTx) Rollback(_ context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type stubBeginner struct {
	tx    *stubTx
	err   error
	calls int
}

func (b *stubBeginner) Begin(_ context.Context) (pgx.Tx, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	if b.tx == nil {
		b.tx = &stubTx{}
	}
	return b.tx, nil
}

type stubGate struct {
	entitlement *Entitlement
	err         error
	calls       int
}

func (g *stubGate) CanAddNewEntry(_ context.Context, _ OwnerContext) (*Entitlement, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if g.entitlement == nil {
		return &Entitlement{Allowed: true}, nil
	}
	return g.entitlement, nil
}

type stubStorage struct {
	uploadErr     error
	signedURL     string
	signedErr     error
	deleteErr     error
	uploads       []string
	lastFolder    string
	deletedPaths  []string
	lastSignedFor string
}

func (s *stubStorage) Upload(_ context.Context, content io.Reader, folder string, filename string) (*StoredObject, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	objectPath := folder + "/" + filename
	s.uploads = append(s.uploads, objectPath)
	s.lastFolder = folder
	return &StoredObject{
		Path: objectPath,
		URL:  "https://storage.example/storage/v1/object/public/docs/" + objectPath,
		Size: int64(len(data)),
	}, nil
}

func (s *stubStorage) Delete(_ context.Context, objectPath string) error {
	s.deletedPaths = append(s.deletedPaths, objectPath)
	return s.deleteErr
}

func (s *stubStorage) SignedURL(_ context.Context, objectPath string) (string, error) {
	s.lastSignedFor = objectPath
	return s.signedURL, s.signedErr
}

func (s *stubStorage) PathFromURL(fileURL string) (string, error) {
	return strings.TrimPrefix(fileURL, "https://storage.example/storage/v1/object/public/docs/"), nil
}
