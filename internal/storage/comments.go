package storage

import (
	"strings"

	"tubeflow/internal/apierr"
	"tubeflow/internal/models"
)

func (s *Storage) AddComment(ownerID, videoID, content string) (models.Comment, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Comment{}, apierr.Validation("content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Comment{}, apierr.NotFound("user %s not found", ownerID)
	}
	if _, ok := s.data.Videos[videoID]; !ok {
		return models.Comment{}, apierr.NotFound("video %s not found", videoID)
	}

	now := s.now()
	comment := models.Comment{
		ID:        newID(),
		OwnerID:   ownerID,
		VideoID:   videoID,
		Content:   trimmed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.data.Comments[comment.ID] = comment
	if err := s.persist(); err != nil {
		delete(s.data.Comments, comment.ID)
		return models.Comment{}, apierr.Wrap(apierr.KindInternal, err, "persist comment")
	}

	return comment, nil
}

func (s *Storage) GetComment(id string) (models.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.data.Comments[id]
	return comment, ok
}

func (s *Storage) UpdateComment(actorID, commentID, content string) (models.Comment, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Comment{}, apierr.Validation("content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	comment, ok := updatedData.Comments[commentID]
	if !ok {
		return models.Comment{}, apierr.NotFound("comment %s not found", commentID)
	}
	if err := authorizeOwner(actorID, comment.OwnerID); err != nil {
		return models.Comment{}, err
	}

	comment.Content = trimmed
	comment.UpdatedAt = s.now()
	updatedData.Comments[commentID] = comment

	if err := s.persistDataset(updatedData); err != nil {
		return models.Comment{}, apierr.Wrap(apierr.KindInternal, err, "persist comment")
	}

	s.data = updatedData

	return comment, nil
}

func (s *Storage) DeleteComment(actorID, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	comment, ok := updatedData.Comments[commentID]
	if !ok {
		return apierr.NotFound("comment %s not found", commentID)
	}
	if err := authorizeOwner(actorID, comment.OwnerID); err != nil {
		return err
	}

	delete(updatedData.Comments, commentID)

	if err := s.persistDataset(updatedData); err != nil {
		return apierr.Wrap(apierr.KindInternal, err, "persist comment deletion")
	}

	s.data = updatedData

	return nil
}
