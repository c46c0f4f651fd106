package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestCORSPolicy(t *testing.T, origins ...string) corsPolicy {
	t.Helper()
	policy, err := newCORSPolicy(CORSConfig{AllowedOrigins: origins})
	if err != nil {
		t.Fatalf("newCORSPolicy: %v", err)
	}
	return policy
}

func TestCORSMiddlewareAllowsConfiguredOrigin(t *testing.T) {
	t.Parallel()

	policy := newTestCORSPolicy(t, "https://studio.example.com")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	nextCalled := false
	handler := corsMiddleware(policy, logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Header.Set("Origin", "https://studio.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !nextCalled {
		t.Fatal("expected allowed origin to reach the handler")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://studio.example.com" {
		t.Fatalf("unexpected allow-origin header %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials to be allowed")
	}
}

func TestCORSMiddlewareBlocksUnknownOrigin(t *testing.T) {
	t.Parallel()

	policy := newTestCORSPolicy(t, "https://studio.example.com")
	handler := corsMiddleware(policy, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a blocked origin")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCORSMiddlewareAllowsSameOrigin(t *testing.T) {
	t.Parallel()

	policy := newTestCORSPolicy(t)
	nextCalled := false
	handler := corsMiddleware(policy, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "http://app.example.com/api/videos", nil)
	req.Host = "app.example.com"
	req.Header.Set("Origin", "http://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !nextCalled {
		t.Fatal("expected same-origin request to pass")
	}
}

func TestCORSMiddlewareHandlesPreflight(t *testing.T) {
	t.Parallel()

	policy := newTestCORSPolicy(t, "https://studio.example.com")
	handler := corsMiddleware(policy, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/videos", nil)
	req.Header.Set("Origin", "https://studio.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Authorization")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("expected allowed methods on preflight response")
	}
	if rec.Header().Get("Access-Control-Allow-Headers") != "Content-Type, Authorization" {
		t.Fatalf("unexpected allow-headers %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestNewCORSPolicyRejectsBadOrigin(t *testing.T) {
	t.Parallel()

	if _, err := newCORSPolicy(CORSConfig{AllowedOrigins: []string{"studio.example.com"}}); err == nil {
		t.Fatal("expected error for origin without scheme")
	}
}
