package assets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), "http://media.local/assets")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return store
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLocalStoreUploadAndDelete(t *testing.T) {
	store := newLocalStore(t)
	source := writeTempFile(t, "clip.mp4", "fake video bytes")

	asset, err := store.Upload(context.Background(), source)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if asset.PublicID == "" {
		t.Fatalf("expected a public id")
	}
	if !strings.HasSuffix(asset.PublicID, ".mp4") {
		t.Fatalf("expected extension preserved, got %s", asset.PublicID)
	}
	if !strings.HasPrefix(asset.URL, "http://media.local/assets/") {
		t.Fatalf("unexpected URL %s", asset.URL)
	}

	stored := filepath.Join(store.root, asset.PublicID)
	data, err := os.ReadFile(stored)
	if err != nil {
		t.Fatalf("ReadFile stored asset: %v", err)
	}
	if string(data) != "fake video bytes" {
		t.Fatalf("stored content mismatch: %q", data)
	}

	if err := store.Delete(context.Background(), asset.PublicID, KindVideo); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(stored); !os.IsNotExist(err) {
		t.Fatalf("expected asset removed, stat err: %v", err)
	}
}

func TestLocalStoreDeleteMissing(t *testing.T) {
	store := newLocalStore(t)
	if err := store.Delete(context.Background(), "nope.mp4", KindVideo); err == nil {
		t.Fatalf("expected error deleting unknown asset")
	}
}

func TestLocalStoreDeleteRejectsPathEscape(t *testing.T) {
	store := newLocalStore(t)
	if err := store.Delete(context.Background(), "../escape", KindImage); err == nil {
		t.Fatalf("expected error for path escape")
	}
}

func TestLocalStoreUploadMissingSource(t *testing.T) {
	store := newLocalStore(t)
	if _, err := store.Upload(context.Background(), filepath.Join(t.TempDir(), "absent.mp4")); err == nil {
		t.Fatalf("expected error for missing source file")
	}
}
