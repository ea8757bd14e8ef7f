package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSupabaseStorageUploadAndSign(t *testing.T) {
	var uploadedPath, uploadedBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "service-key" {
			t.Errorf("missing api key header")
		}
		switch {
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/storage/v1/object/sign/"):
			_, _ = w.Write([]byte(`{"signedURL":"/object/sign/docs/clients/abc/file.pdf?token=t"}`))
		case r.Method == http.MethodPost:
			uploadedPath = r.URL.Path
			body, _ := io.ReadAll(r.Body)
			uploadedBody = string(body)
			_, _ = w.Write([]byte(`{"Key":"ok"}`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer server.Close()

	storage := NewSupabaseStorageService(server.URL+"/", "docs", "service-key")
	object, err := storage.Upload(context.Background(), strings.NewReader("hello"), "/clients/abc/", "file.pdf")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if uploadedPath != "/storage/v1/object/docs/clients/abc/file.pdf" || uploadedBody != "hello" {
		t.Fatalf("unexpected upload %s %q", uploadedPath, uploadedBody)
	}
	if object.Path != "clients/abc/file.pdf" || object.Size != 5 {
		t.Fatalf("unexpected object %+v", object)
	}

	path, err := storage.PathFromURL(object.URL)
	if err != nil || path != object.Path {
		t.Fatalf("PathFromURL = %q, %v", path, err)
	}

	signed, err := storage.SignedURL(context.Background(), object.Path)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	if signed != server.URL+"/storage/v1/object/sign/docs/clients/abc/file.pdf?token=t" {
		t.Fatalf("unexpected signed url %q", signed)
	}
}

func TestSupabaseStorageDeleteIgnoresMissingObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	storage := NewSupabaseStorageService(server.URL, "docs", "key")
	if err := storage.Delete(context.Background(), "clients/abc/gone.pdf"); err != nil {
		t.Fatalf("expected nil for missing object, got %v", err)
	}
}

func TestSupabaseStorageSurfacesProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`Bucket not found`))
	}))
	defer server.Close()

	storage := NewSupabaseStorageService(server.URL, "docs", "key")
	_, err := storage.Upload(context.Background(), strings.NewReader("x"), "cpd", "a.pdf")
	if err == nil || !strings.Contains(err.Error(), "Bucket not found") {
		t.Fatalf("expected provider message, got %v", err)
	}
}

func TestPathFromURLRejectsForeignBucket(t *testing.T) {
	storage := NewSupabaseStorageService("https://proj.supabase.co", "docs", "key")
	if _, err := storage.PathFromURL("https://proj.supabase.co/storage/v1/object/public/other/a.pdf"); err == nil {
		t.Fatalf("expected error for foreign bucket")
	}
}

func TestUploadValidation(t *testing.T) {
	cases := []struct {
		upload Upload
		want   error
	}{
		{Upload{Filename: "notes.pdf", Size: 10, Content: strings.NewReader("x")}, nil},
		{Upload{Filename: "big.pdf", Size: maxDocumentBytes + 1, Content: strings.NewReader("x")}, ErrFileTooLarge},
		{Upload{Filename: "run.exe", Size: 10, Content: strings.NewReader("x")}, ErrUnsupportedFile},
		{Upload{Filename: "", Size: 10, Content: strings.NewReader("x")}, ErrInvalidInput},
	}
	for _, tc := range cases {
		if err := tc.upload.validate(); !errors.Is(err, tc.want) {
			t.Fatalf("validate(%q) = %v, want %v", tc.upload.Filename, err, tc.want)
		}
	}
}
