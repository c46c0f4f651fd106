package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T, extra ...Option) *Storage {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	store, err := NewStorage(path, extra...)
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	return store
}

func tempMediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("media bytes for "+name), 0o644); err != nil {
		t.Fatalf("write media file: %v", err)
	}
	return path
}

func registerTestUser(t *testing.T, store *Storage, handle string) string {
	t.Helper()
	user, err := store.Register(context.Background(), RegisterParams{
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

func publishTestVideo(t *testing.T, store *Storage, ownerID, title string) string {
	t.Helper()
	video, err := store.PublishVideo(context.Background(), PublishVideoParams{
		OwnerID:       ownerID,
		Title:         title,
		Description:   "about " + title,
		VideoPath:     tempMediaFile(t, title+".mp4"),
		ThumbnailPath: tempMediaFile(t, title+".png"),
	})
	if err != nil {
		t.Fatalf("PublishVideo %s: %v", title, err)
	}
	return video.ID
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
