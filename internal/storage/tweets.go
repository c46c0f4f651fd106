package storage

import (
	"sort"
	"strings"

	"tubeflow/internal/apierr"
	"tubeflow/internal/models"
)

const maxTweetLength = 280

func validateTweetContent(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", apierr.Validation("content is required")
	}
	if len(trimmed) > maxTweetLength {
		return "", apierr.Validation("content exceeds %d characters", maxTweetLength)
	}
	return trimmed, nil
}

func (s *Storage) CreateTweet(ownerID, content string) (models.Tweet, error) {
	trimmed, err := validateTweetContent(content)
	if err != nil {
		return models.Tweet{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Tweet{}, apierr.NotFound("user %s not found", ownerID)
	}

	now := s.now()
	tweet := models.Tweet{
		ID:        newID(),
		OwnerID:   ownerID,
		Content:   trimmed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.data.Tweets[tweet.ID] = tweet
	if err := s.persist(); err != nil {
		delete(s.data.Tweets, tweet.ID)
		return models.Tweet{}, apierr.Wrap(apierr.KindInternal, err, "persist tweet")
	}

	return tweet, nil
}

func (s *Storage) GetTweet(id string) (models.Tweet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tweet, ok := s.data.Tweets[id]
	return tweet, ok
}

// ListUserTweets returns a user's tweets, newest first.
func (s *Storage) ListUserTweets(userID string) ([]models.Tweet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[userID]; !ok {
		return nil, apierr.NotFound("user %s not found", userID)
	}

	tweets := make([]models.Tweet, 0)
	for _, tweet := range s.data.Tweets {
		if tweet.OwnerID == userID {
			tweets = append(tweets, tweet)
		}
	}
	sort.Slice(tweets, func(i, j int) bool {
		return tweets[i].CreatedAt.After(tweets[j].CreatedAt)
	})
	return tweets, nil
}

func (s *Storage) UpdateTweet(actorID, tweetID, content string) (models.Tweet, error) {
	trimmed, err := validateTweetContent(content)
	if err != nil {
		return models.Tweet{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	tweet, ok := updatedData.Tweets[tweetID]
	if !ok {
		return models.Tweet{}, apierr.NotFound("tweet %s not found", tweetID)
	}
	if err := authorizeOwner(actorID, tweet.OwnerID); err != nil {
		return models.Tweet{}, err
	}

	tweet.Content = trimmed
	tweet.UpdatedAt = s.now()
	updatedData.Tweets[tweetID] = tweet

	if err := s.persistDataset(updatedData); err != nil {
		return models.Tweet{}, apierr.Wrap(apierr.KindInternal, err, "persist tweet")
	}

	s.data = updatedData

	return tweet, nil
}

func (s *Storage) DeleteTweet(actorID, tweetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	tweet, ok := updatedData.Tweets[tweetID]
	if !ok {
		return apierr.NotFound("tweet %s not found", tweetID)
	}
	if err := authorizeOwner(actorID, tweet.OwnerID); err != nil {
		return err
	}

	delete(updatedData.Tweets, tweetID)

	if err := s.persistDataset(updatedData); err != nil {
		return apierr.Wrap(apierr.KindInternal, err, "persist tweet deletion")
	}

	s.data = updatedData

	return nil
}
