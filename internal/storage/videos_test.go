package storage

import (
	"context"
	"testing"

	"tubeflow/internal/apierr"
	"tubeflow/internal/assets"
)

func newTestStoreWithMedia(t *testing.T) (*Storage, *assets.LocalStore) {
	t.Helper()
	media, err := assets.NewLocalStore(t.TempDir(), "http://media.local")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	store := newTestStore(t, WithAssetStore(media))
	return store, media
}

func TestPublishVideoUploadsAssets(t *testing.T) {
	store, _ := newTestStoreWithMedia(t)
	ownerID := registerTestUser(t, store, "owner")

	video, err := store.PublishVideo(context.Background(), PublishVideoParams{
		OwnerID:       ownerID,
		Title:         "First Upload",
		Description:   "hello",
		VideoPath:     tempMediaFile(t, "first.mp4"),
		ThumbnailPath: tempMediaFile(t, "first.png"),
	})
	if err != nil {
		t.Fatalf("PublishVideo: %v", err)
	}
	if video.VideoFile.PublicID == "" || video.Thumbnail.PublicID == "" {
		t.Fatalf("expected asset references, got %+v", video)
	}
	if !video.IsPublished {
		t.Fatalf("new videos publish by default")
	}
}

func TestPublishVideoValidatesInput(t *testing.T) {
	store := newTestStore(t)
	ownerID := registerTestUser(t, store, "owner")

	if _, err := store.PublishVideo(context.Background(), PublishVideoParams{
		OwnerID:       ownerID,
		VideoPath:     "clip.mp4",
		ThumbnailPath: "thumb.png",
	}); !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("expected validation error for missing title, got %v", err)
	}

	if _, err := store.PublishVideo(context.Background(), PublishVideoParams{
		OwnerID:       "missing-user",
		Title:         "T",
		VideoPath:     "clip.mp4",
		ThumbnailPath: "thumb.png",
	}); !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("expected not found for unknown owner, got %v", err)
	}
}

func TestRecordViewBumpsViewsAndHistory(t *testing.T) {
	store := newTestStore(t)
	ownerID := registerTestUser(t, store, "owner")
	viewerID := registerTestUser(t, store, "viewer")
	firstID := publishTestVideo(t, store, ownerID, "first")
	secondID := publishTestVideo(t, store, ownerID, "second")

	if _, err := store.RecordView(firstID, viewerID); err != nil {
		t.Fatalf("RecordView first: %v", err)
	}
	if _, err := store.RecordView(secondID, viewerID); err != nil {
		t.Fatalf("RecordView second: %v", err)
	}
	// Re-watching moves the video back to the front without duplicating it.
	video, err := store.RecordView(firstID, viewerID)
	if err != nil {
		t.Fatalf("RecordView first again: %v", err)
	}
	if video.Views != 2 {
		t.Fatalf("expected 2 views, got %d", video.Views)
	}

	viewer, _ := store.GetUser(viewerID)
	want := []string{firstID, secondID}
	if len(viewer.WatchHistory) != len(want) {
		t.Fatalf("watch history length %d, want %d", len(viewer.WatchHistory), len(want))
	}
	for i, id := range want {
		if viewer.WatchHistory[i] != id {
			t.Fatalf("watch history[%d] = %s, want %s", i, viewer.WatchHistory[i], id)
		}
	}
}

func TestRecordViewWithoutViewerOnlyCounts(t *testing.T) {
	store := newTestStore(t)
	ownerID := registerTestUser(t, store, "owner")
	videoID := publishTestVideo(t, store, ownerID, "anon")

	video, err := store.RecordView(videoID, "")
	if err != nil {
		t.Fatalf("RecordView: %v", err)
	}
	if video.Views != 1 {
		t.Fatalf("expected 1 view, got %d", video.Views)
	}
}

func TestUpdateVideoRequiresOwnership(t *testing.T) {
	store := newTestStore(t)
	ownerID := registerTestUser(t, store, "owner")
	strangerID := registerTestUser(t, store, "stranger")
	videoID := publishTestVideo(t, store, ownerID, "clip")

	title := "Renamed"
	if _, err := store.UpdateVideo(context.Background(), strangerID, videoID, VideoUpdate{Title: &title}); !apierr.IsKind(err, apierr.KindForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}

	updated, err := store.UpdateVideo(context.Background(), ownerID, videoID, VideoUpdate{Title: &title})
	if err != nil {
		t.Fatalf("UpdateVideo: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Fatalf("title not updated: %q", updated.Title)
	}
}

func TestDeleteVideoRemovesAssetsBeforeRecord(t *testing.T) {
	store, media := newTestStoreWithMedia(t)
	ownerID := registerTestUser(t, store, "owner")

	video, err := store.PublishVideo(context.Background(), PublishVideoParams{
		OwnerID:       ownerID,
		Title:         "Doomed",
		VideoPath:     tempMediaFile(t, "doomed.mp4"),
		ThumbnailPath: tempMediaFile(t, "doomed.png"),
	})
	if err != nil {
		t.Fatalf("PublishVideo: %v", err)
	}

	if err := store.DeleteVideo(context.Background(), ownerID, video.ID); err != nil {
		t.Fatalf("DeleteVideo: %v", err)
	}
	if _, ok := store.GetVideo(video.ID); ok {
		t.Fatalf("record still present after delete")
	}
	// Deleting again through the media store proves the assets are gone.
	if err := media.Delete(context.Background(), video.VideoFile.PublicID, assets.KindVideo); err == nil {
		t.Fatalf("video asset still present after delete")
	}
	if err := media.Delete(context.Background(), video.Thumbnail.PublicID, assets.KindImage); err == nil {
		t.Fatalf("thumbnail asset still present after delete")
	}
}

func TestDeleteVideoKeepsRecordWhenAssetDeleteFails(t *testing.T) {
	store, media := newTestStoreWithMedia(t)
	ownerID := registerTestUser(t, store, "owner")

	video, err := store.PublishVideo(context.Background(), PublishVideoParams{
		OwnerID:       ownerID,
		Title:         "Sticky",
		VideoPath:     tempMediaFile(t, "sticky.mp4"),
		ThumbnailPath: tempMediaFile(t, "sticky.png"),
	})
	if err != nil {
		t.Fatalf("PublishVideo: %v", err)
	}

	// Remove the asset out of band so the store's delete fails.
	if err := media.Delete(context.Background(), video.VideoFile.PublicID, assets.KindVideo); err != nil {
		t.Fatalf("out-of-band delete: %v", err)
	}

	if err := store.DeleteVideo(context.Background(), ownerID, video.ID); err == nil {
		t.Fatalf("expected asset deletion failure to surface")
	}
	if _, ok := store.GetVideo(video.ID); !ok {
		t.Fatalf("record removed despite failed asset deletion")
	}
}

func TestDeleteVideoForbiddenForNonOwner(t *testing.T) {
	store := newTestStore(t)
	ownerID := registerTestUser(t, store, "owner")
	strangerID := registerTestUser(t, store, "stranger")
	videoID := publishTestVideo(t, store, ownerID, "mine")

	if err := store.DeleteVideo(context.Background(), strangerID, videoID); !apierr.IsKind(err, apierr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, ok := store.GetVideo(videoID); !ok {
		t.Fatalf("video removed by non-owner")
	}
}

func TestTogglePublishFlipsState(t *testing.T) {
	store := newTestStore(t)
	ownerID := registerTestUser(t, store, "owner")
	videoID := publishTestVideo(t, store, ownerID, "flip")

	video, err := store.TogglePublish(ownerID, videoID)
	if err != nil {
		t.Fatalf("TogglePublish: %v", err)
	}
	if video.IsPublished {
		t.Fatalf("expected unpublished after toggle")
	}
	video, err = store.TogglePublish(ownerID, videoID)
	if err != nil {
		t.Fatalf("TogglePublish: %v", err)
	}
	if !video.IsPublished {
		t.Fatalf("expected published after second toggle")
	}
}
