package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"tubeflow/internal/auth"
	"tubeflow/internal/storage"
)

func newTestHandler(t *testing.T) (*Handler, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	tokens, err := auth.NewTokenManager("handler-test-secret")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(store, tokens, logger), store
}

func tempMediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("media bytes for "+name), 0o644); err != nil {
		t.Fatalf("write media file: %v", err)
	}
	return path
}

func registerTestAccount(t *testing.T, store *storage.Storage, handle string) string {
	t.Helper()
	user, err := store.Register(context.Background(), storage.RegisterParams{
		Handle:      handle,
		DisplayName: "User " + handle,
		Email:       handle + "@example.com",
		Password:    "correct-horse",
		AvatarPath:  tempMediaFile(t, handle+"-avatar.png"),
	})
	if err != nil {
		t.Fatalf("Register %s: %v", handle, err)
	}
	return user.ID
}

func issueAccessToken(t *testing.T, handler *Handler, userID string) string {
	t.Helper()
	pair, err := handler.Tokens.Issue(userID)
	if err != nil {
		t.Fatalf("Issue tokens: %v", err)
	}
	return pair.AccessToken
}

func authedRequest(t *testing.T, method, target, token string, body io.Reader) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// decodeEnvelope unpacks the common response shell and returns the raw data
// payload for further decoding by the caller.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (json.RawMessage, envelope) {
	t.Helper()
	var shell struct {
		StatusCode int             `json:"statusCode"`
		Data       json.RawMessage `json:"data"`
		Message    string          `json:"message"`
		Success    bool            `json:"success"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &shell); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return shell.Data, envelope{
		StatusCode: shell.StatusCode,
		Message:    shell.Message,
		Success:    shell.Success,
	}
}

func decodeErrorEnvelope(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var shell errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &shell); err != nil {
		t.Fatalf("decode error envelope: %v (body %s)", err, rec.Body.String())
	}
	return shell
}

// multipartBody builds a multipart form from string fields plus named file
// parts, returning the body and its content type.
func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	for field, path := range files {
		part, err := writer.CreateFormFile(field, filepath.Base(path))
		if err != nil {
			t.Fatalf("create file part %s: %v", field, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read file part %s: %v", field, err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write file part %s: %v", field, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestHealthReportsOK(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data, shell := decodeEnvelope(t, rec)
	if !shell.Success {
		t.Fatalf("expected success envelope, got %+v", shell)
	}
	var status map[string]string
	if err := json.Unmarshal(data, &status); err != nil {
		t.Fatalf("decode health data: %v", err)
	}
	if status["status"] != "ok" {
		t.Fatalf("expected ok status, got %q", status["status"])
	}
}

func TestErrorEnvelopeShape(t *testing.T) {
	handler, store := newTestHandler(t)
	registerTestAccount(t, store, "alice")

	payload := bytes.NewBufferString(`{"identifier":"alice","password":"wrong-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", payload)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body %s)", rec.Code, rec.Body.String())
	}
	shell := decodeErrorEnvelope(t, rec)
	if shell.Success {
		t.Fatal("expected success=false in error envelope")
	}
	if shell.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected statusCode 401 in envelope, got %d", shell.StatusCode)
	}
	if shell.Message == "" {
		t.Fatal("expected non-empty error message")
	}
	if shell.Errors == nil {
		t.Fatal("expected errors array in error envelope")
	}
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Me(rec, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	shell := decodeErrorEnvelope(t, rec)
	if shell.Success || shell.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected envelope: %+v", shell)
	}
}

func TestMeOmitsCredentials(t *testing.T) {
	handler, store := newTestHandler(t)
	userID := registerTestAccount(t, store, "bob")
	token := issueAccessToken(t, handler, userID)

	rec := httptest.NewRecorder()
	handler.Me(rec, authedRequest(t, http.MethodGet, "/api/users/me", token, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}
	data, _ := decodeEnvelope(t, rec)
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("decode user data: %v", err)
	}
	if fields["handle"] != "bob" {
		t.Fatalf("expected handle bob, got %v", fields["handle"])
	}
	if _, leaked := fields["passwordHash"]; leaked {
		t.Fatal("response leaked password hash")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodGet, "/api/auth/login", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
