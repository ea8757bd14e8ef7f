package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/delloop-lab/accreditor-sub000/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type stubClientService struct {
	err           error
	lastInput     repository.ClientInput
	lastUploads   []string
	lastUpload    services.Upload
	signedURL     string
	createdClient *models.Client
}

func (s *stubClientService) CreateClient(_ context.Context, _ uuid.UUID, input repository.ClientInput, uploads []services.Upload) (*services.ClientCreation, error) {
	s.lastInput = input
	for _, upload := range uploads {
		s.lastUploads = append(s.lastUploads, upload.Filename)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &services.ClientCreation{Client: s.createdClient}, nil
}

func (s *stubClientService) ListClients(_ context.Context, _ uuid.UUID) ([]models.Client, error) {
	return nil, s.err
}

func (s *stubClientService) GetClient(_ context.Context, _, _ uuid.UUID) (*models.Client, error) {
	return s.createdClient, s.err
}

func (s *stubClientService) UpdateClient(_ context.Context, _, _ uuid.UUID, input repository.ClientInput) (*models.Client, error) {
	s.lastInput = input
	return s.createdClient, s.err
}

func (s *stubClientService) DeleteClient(_ context.Context, _, _ uuid.UUID) error {
	return s.err
}

func (s *stubClientService) AddDocument(_ context.Context, _, _ uuid.UUID, upload services.Upload) (*models.ClientDocument, error) {
	s.lastUpload = upload
	if s.err != nil {
		return nil, s.err
	}
	return &models.ClientDocument{ID: uuid.New()}, nil
}

func (s *stubClientService) ListDocuments(_ context.Context, _, _ uuid.UUID) ([]models.ClientDocument, error) {
	return nil, s.err
}

func (s *stubClientService) DeleteDocument(_ context.Context, _, _ uuid.UUID) error {
	return s.err
}

func (s *stubClientService) DocumentURL(_ context.Context, _, _ uuid.UUID) (string, error) {
	return s.signedURL, s.err
}

func newClientTestApp(service *stubClientService) *fiber.App {
	handler := &ClientHandler{service: service}
	app := newOwnerApp(testOwner)
	app.Post("/clients", handler.CreateClient)
	app.Put("/clients/:id", handler.UpdateClient)
	app.Post("/clients/:id/documents", handler.UploadDocument)
	app.Get("/documents/:docId/url", handler.DocumentURL)
	return app
}

func TestCreateClientFromJSON(t *testing.T) {
	service := &stubClientService{createdClient: &models.Client{ID: uuid.New(), Name: "Ana"}}
	app := newClientTestApp(service)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/clients", `{"name":"Ana","email":" ana@example.com "}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastInput.Email != "ana@example.com" {
		t.Fatalf("expected trimmed email, got %q", service.lastInput.Email)
	}
}

func TestCreateClientRejectsBadEmail(t *testing.T) {
	app := newClientTestApp(&stubClientService{})

	resp, err := app.Test(jsonRequest(http.MethodPost, "/clients", `{"name":"Ana","email":"not-an-email"}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateClientRejectsBlankName(t *testing.T) {
	service := &stubClientService{}
	app := newClientTestApp(service)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/clients", `{"name":"   ","email":"ana@example.com"}`))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.lastInput.Name != "" {
		t.Fatalf("expected service not to be called, got %+v", service.lastInput)
	}
}

func TestUpdateClientTrimsContactFields(t *testing.T) {
	service := &stubClientService{createdClient: &models.Client{ID: uuid.New(), Name: "Ana"}}
	app := newClientTestApp(service)

	body := `{"name":"  Ana Lima ","email":"\tana@example.com ","phone":" +351 900 000 000 "}`
	resp, err := app.Test(jsonRequest(http.MethodPut, "/clients/"+uuid.NewString(), body))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := service.lastInput
	if got.Name != "Ana Lima" || got.Email != "ana@example.com" || got.Phone != "+351 900 000 000" {
		t.Fatalf("expected trimmed input, got %+v", got)
	}
}

func TestCreateClientWithDocuments(t *testing.T) {
	service := &stubClientService{createdClient: &models.Client{ID: uuid.New()}}
	app := newClientTestApp(service)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("name", "Bruno")
	for _, name := range []string{"contract.pdf", "notes.txt"} {
		part, err := writer.CreateFormFile("documents", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write([]byte("content"))
	}
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/clients", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastInput.Name != "Bruno" || len(service.lastUploads) != 2 {
		t.Fatalf("unexpected create call: name=%q uploads=%v", service.lastInput.Name, service.lastUploads)
	}
}

func TestUploadDocumentMapsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "created", want: http.StatusCreated},
		{name: "unsupported", err: services.ErrUnsupportedFile, want: http.StatusUnsupportedMediaType},
		{name: "too large", err: services.ErrFileTooLarge, want: http.StatusRequestEntityTooLarge},
		{name: "storage missing", err: services.ErrStorageUnavailable, want: http.StatusServiceUnavailable},
		{name: "unknown client", err: services.ErrNotFound, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &stubClientService{err: tt.err}
			app := newClientTestApp(service)

			req := multipartRequest(t, "/clients/"+uuid.NewString()+"/documents", "file", "scan.png", []byte("png"))
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
			if service.lastUpload.Filename != "scan.png" {
				t.Fatalf("expected scan.png to be forwarded, got %q", service.lastUpload.Filename)
			}
		})
	}
}

func TestDocumentURLReturnsExpiry(t *testing.T) {
	app := newClientTestApp(&stubClientService{signedURL: "https://storage.example.com/signed"})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+uuid.NewString()+"/url", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	payload := decodeBody(t, resp)
	if payload["download_url"] != "https://storage.example.com/signed" || payload["expires_in_seconds"] != float64(3600) {
		t.Fatalf("unexpected payload %v", payload)
	}
}
