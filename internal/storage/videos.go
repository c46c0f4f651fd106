package storage

import (
	"context"
	"strings"

	"tubeflow/internal/apierr"
	"tubeflow/internal/assets"
	"tubeflow/internal/models"
)

// PublishVideoParams carries everything needed to publish a new video. The
// file paths point at local staging files handed to the asset store.
type PublishVideoParams struct {
	OwnerID         string
	Title           string
	Description     string
	VideoPath       string
	ThumbnailPath   string
	DurationSeconds float64
}

// PublishVideo uploads the video file and thumbnail, then writes the
// record. A failed record write removes both uploaded assets.
func (s *Storage) PublishVideo(ctx context.Context, params PublishVideoParams) (models.Video, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Video{}, apierr.Validation("title is required")
	}
	if strings.TrimSpace(params.VideoPath) == "" {
		return models.Video{}, apierr.Validation("video file is required")
	}
	if strings.TrimSpace(params.ThumbnailPath) == "" {
		return models.Video{}, apierr.Validation("thumbnail file is required")
	}
	if _, ok := s.GetUser(params.OwnerID); !ok {
		return models.Video{}, apierr.NotFound("user %s not found", params.OwnerID)
	}

	videoAsset, err := s.assets.Upload(ctx, params.VideoPath)
	if err != nil {
		return models.Video{}, apierr.Wrap(apierr.KindInternal, err, "upload video file")
	}
	thumbAsset, err := s.assets.Upload(ctx, params.ThumbnailPath)
	if err != nil {
		_ = s.assets.Delete(ctx, videoAsset.PublicID, assets.KindVideo)
		return models.Video{}, apierr.Wrap(apierr.KindInternal, err, "upload thumbnail")
	}

	duration := params.DurationSeconds
	if videoAsset.DurationSeconds > 0 {
		duration = videoAsset.DurationSeconds
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	video := models.Video{
		ID:              newID(),
		OwnerID:         params.OwnerID,
		VideoFile:       models.MediaRef{URL: videoAsset.URL, PublicID: videoAsset.PublicID},
		Thumbnail:       models.MediaRef{URL: thumbAsset.URL, PublicID: thumbAsset.PublicID},
		Title:           title,
		Description:     strings.TrimSpace(params.Description),
		DurationSeconds: duration,
		IsPublished:     true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.data.Videos[video.ID] = video
	if err := s.persist(); err != nil {
		delete(s.data.Videos, video.ID)
		_ = s.assets.Delete(ctx, videoAsset.PublicID, assets.KindVideo)
		_ = s.assets.Delete(ctx, thumbAsset.PublicID, assets.KindImage)
		return models.Video{}, apierr.Wrap(apierr.KindInternal, err, "persist video")
	}

	return video, nil
}

func (s *Storage) GetVideo(id string) (models.Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.data.Videos[id]
	return video, ok
}

// RecordView bumps the view counter and moves the video to the front of
// the viewer's watch history. The history holds each video at most once.
func (s *Storage) RecordView(videoID, viewerID string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[videoID]
	if !ok {
		return models.Video{}, apierr.NotFound("video %s not found", videoID)
	}

	video.Views++
	updatedData.Videos[videoID] = video

	if viewerID != "" {
		viewer, ok := updatedData.Users[viewerID]
		if !ok {
			return models.Video{}, apierr.NotFound("user %s not found", viewerID)
		}
		history := make([]string, 0, len(viewer.WatchHistory)+1)
		history = append(history, videoID)
		for _, seen := range viewer.WatchHistory {
			if seen == videoID {
				continue
			}
			history = append(history, seen)
		}
		viewer.WatchHistory = history
		updatedData.Users[viewerID] = viewer
	}

	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, apierr.Wrap(apierr.KindInternal, err, "persist view")
	}

	s.data = updatedData

	return video, nil
}

// VideoUpdate represents the mutable video fields. ThumbnailPath, when set,
// replaces the thumbnail asset.
type VideoUpdate struct {
	Title         *string
	Description   *string
	ThumbnailPath *string
}

// UpdateVideo mutates video metadata after an ownership check. When the
// thumbnail changes, the new asset is uploaded and persisted before the
// previous one is removed.
func (s *Storage) UpdateVideo(ctx context.Context, actorID, videoID string, update VideoUpdate) (models.Video, error) {
	var thumbAsset assets.Asset
	if update.ThumbnailPath != nil {
		if strings.TrimSpace(*update.ThumbnailPath) == "" {
			return models.Video{}, apierr.Validation("thumbnail file is required")
		}
		uploaded, err := s.assets.Upload(ctx, *update.ThumbnailPath)
		if err != nil {
			return models.Video{}, apierr.Wrap(apierr.KindInternal, err, "upload thumbnail")
		}
		thumbAsset = uploaded
	}

	discardUpload := func() {
		if thumbAsset.PublicID != "" {
			_ = s.assets.Delete(ctx, thumbAsset.PublicID, assets.KindImage)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[videoID]
	if !ok {
		discardUpload()
		return models.Video{}, apierr.NotFound("video %s not found", videoID)
	}
	if err := authorizeOwner(actorID, video.OwnerID); err != nil {
		discardUpload()
		return models.Video{}, err
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			discardUpload()
			return models.Video{}, apierr.Validation("title cannot be empty")
		}
		video.Title = title
	}
	if update.Description != nil {
		video.Description = strings.TrimSpace(*update.Description)
	}

	previousThumb := models.MediaRef{}
	if thumbAsset.PublicID != "" {
		previousThumb = video.Thumbnail
		video.Thumbnail = models.MediaRef{URL: thumbAsset.URL, PublicID: thumbAsset.PublicID}
	}

	video.UpdatedAt = s.now()
	updatedData.Videos[videoID] = video

	if err := s.persistDataset(updatedData); err != nil {
		discardUpload()
		return models.Video{}, apierr.Wrap(apierr.KindInternal, err, "persist video")
	}

	s.data = updatedData

	if previousThumb.PublicID != "" {
		_ = s.assets.Delete(ctx, previousThumb.PublicID, assets.KindImage)
	}

	return video, nil
}

// DeleteVideo removes the remote assets first and the record second, so a
// failed asset deletion leaves the record pointing at a live asset instead
// of orphaning the asset behind a deleted record.
func (s *Storage) DeleteVideo(ctx context.Context, actorID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[videoID]
	if !ok {
		return apierr.NotFound("video %s not found", videoID)
	}
	if err := authorizeOwner(actorID, video.OwnerID); err != nil {
		return err
	}

	if video.VideoFile.PublicID != "" {
		if err := s.assets.Delete(ctx, video.VideoFile.PublicID, assets.KindVideo); err != nil {
			return apierr.Wrap(apierr.KindInternal, err, "delete video asset")
		}
	}
	if video.Thumbnail.PublicID != "" {
		if err := s.assets.Delete(ctx, video.Thumbnail.PublicID, assets.KindImage); err != nil {
			return apierr.Wrap(apierr.KindInternal, err, "delete thumbnail asset")
		}
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.Videos, videoID)

	if err := s.persistDataset(updatedData); err != nil {
		return apierr.Wrap(apierr.KindInternal, err, "persist video deletion")
	}

	s.data = updatedData

	return nil
}

// TogglePublish flips the publish flag after an ownership check and
// returns the new state.
func (s *Storage) TogglePublish(actorID, videoID string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[videoID]
	if !ok {
		return models.Video{}, apierr.NotFound("video %s not found", videoID)
	}
	if err := authorizeOwner(actorID, video.OwnerID); err != nil {
		return models.Video{}, err
	}

	video.IsPublished = !video.IsPublished
	video.UpdatedAt = s.now()
	updatedData.Videos[videoID] = video

	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, apierr.Wrap(apierr.KindInternal, err, "persist video")
	}

	s.data = updatedData

	return video, nil
}
