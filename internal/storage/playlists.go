package storage

import (
	"sort"
	"strings"

	"tubeflow/internal/apierr"
	"tubeflow/internal/models"
)

func (s *Storage) CreatePlaylist(ownerID, name, description string) (models.Playlist, error) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return models.Playlist{}, apierr.Validation("name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Playlist{}, apierr.NotFound("user %s not found", ownerID)
	}

	now := s.now()
	playlist := models.Playlist{
		ID:          newID(),
		OwnerID:     ownerID,
		Name:        trimmedName,
		Description: strings.TrimSpace(description),
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.data.Playlists[playlist.ID] = playlist
	if err := s.persist(); err != nil {
		delete(s.data.Playlists, playlist.ID)
		return models.Playlist{}, apierr.Wrap(apierr.KindInternal, err, "persist playlist")
	}

	return playlist, nil
}

func (s *Storage) GetPlaylist(id string) (models.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playlist, ok := s.data.Playlists[id]
	return playlist, ok
}

// ListUserPlaylists returns a user's playlists, newest first.
func (s *Storage) ListUserPlaylists(userID string) ([]models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[userID]; !ok {
		return nil, apierr.NotFound("user %s not found", userID)
	}

	playlists := make([]models.Playlist, 0)
	for _, playlist := range s.data.Playlists {
		if playlist.OwnerID == userID {
			playlists = append(playlists, playlist)
		}
	}
	sort.Slice(playlists, func(i, j int) bool {
		return playlists[i].CreatedAt.After(playlists[j].CreatedAt)
	})
	return playlists, nil
}

// PlaylistUpdate represents the mutable playlist fields.
type PlaylistUpdate struct {
	Name        *string
	Description *string
}

func (s *Storage) UpdatePlaylist(actorID, playlistID string, update PlaylistUpdate) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, apierr.NotFound("playlist %s not found", playlistID)
	}
	if err := authorizeOwner(actorID, playlist.OwnerID); err != nil {
		return models.Playlist{}, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.Playlist{}, apierr.Validation("name cannot be empty")
		}
		playlist.Name = name
	}
	if update.Description != nil {
		playlist.Description = strings.TrimSpace(*update.Description)
	}

	playlist.UpdatedAt = s.now()
	updatedData.Playlists[playlistID] = playlist

	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, apierr.Wrap(apierr.KindInternal, err, "persist playlist")
	}

	s.data = updatedData

	return playlist, nil
}

// AddVideoToPlaylist appends the video reference. Adding a video already in
// the playlist is a no-op that returns the unchanged playlist.
func (s *Storage) AddVideoToPlaylist(actorID, playlistID, videoID string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, apierr.NotFound("playlist %s not found", playlistID)
	}
	if err := authorizeOwner(actorID, playlist.OwnerID); err != nil {
		return models.Playlist{}, err
	}
	if _, ok := updatedData.Videos[videoID]; !ok {
		return models.Playlist{}, apierr.NotFound("video %s not found", videoID)
	}

	for _, existing := range playlist.VideoIDs {
		if existing == videoID {
			return playlist, nil
		}
	}

	playlist.VideoIDs = append(playlist.VideoIDs, videoID)
	playlist.UpdatedAt = s.now()
	updatedData.Playlists[playlistID] = playlist

	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, apierr.Wrap(apierr.KindInternal, err, "persist playlist")
	}

	s.data = updatedData

	return playlist, nil
}

// RemoveVideoFromPlaylist drops the video reference while preserving the
// order of the remaining entries.
func (s *Storage) RemoveVideoFromPlaylist(actorID, playlistID, videoID string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, apierr.NotFound("playlist %s not found", playlistID)
	}
	if err := authorizeOwner(actorID, playlist.OwnerID); err != nil {
		return models.Playlist{}, err
	}

	filtered := make([]string, 0, len(playlist.VideoIDs))
	for _, existing := range playlist.VideoIDs {
		if existing == videoID {
			continue
		}
		filtered = append(filtered, existing)
	}
	if len(filtered) == len(playlist.VideoIDs) {
		return models.Playlist{}, apierr.NotFound("video %s not in playlist %s", videoID, playlistID)
	}

	playlist.VideoIDs = filtered
	playlist.UpdatedAt = s.now()
	updatedData.Playlists[playlistID] = playlist

	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, apierr.Wrap(apierr.KindInternal, err, "persist playlist")
	}

	s.data = updatedData

	return playlist, nil
}

func (s *Storage) DeletePlaylist(actorID, playlistID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[playlistID]
	if !ok {
		return apierr.NotFound("playlist %s not found", playlistID)
	}
	if err := authorizeOwner(actorID, playlist.OwnerID); err != nil {
		return err
	}

	delete(updatedData.Playlists, playlistID)

	if err := s.persistDataset(updatedData); err != nil {
		return apierr.Wrap(apierr.KindInternal, err, "persist playlist deletion")
	}

	s.data = updatedData

	return nil
}
