package storage

import (
	"tubeflow/internal/apierr"
	"tubeflow/internal/models"
)

// ToggleLike flips the like state for the (actor, target) pair and reports
// the resulting state. The existence check keys on the actor AND the full
// composite target, so one actor's likes on a video, a tweet, and a comment
// coexist independently. Check and write happen under the single store
// lock, so concurrent toggles for the same pair serialize cleanly.
func (s *Storage) ToggleLike(actorID string, target models.LikeTarget, targetID string) (bool, error) {
	if actorID == "" {
		return false, apierr.Auth("authentication required")
	}
	if targetID == "" {
		return false, apierr.Validation("target id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch target {
	case models.LikeTargetVideo:
		if _, ok := s.data.Videos[targetID]; !ok {
			return false, apierr.NotFound("video %s not found", targetID)
		}
	case models.LikeTargetTweet:
		if _, ok := s.data.Tweets[targetID]; !ok {
			return false, apierr.NotFound("tweet %s not found", targetID)
		}
	case models.LikeTargetComment:
		if _, ok := s.data.Comments[targetID]; !ok {
			return false, apierr.NotFound("comment %s not found", targetID)
		}
	default:
		return false, apierr.Validation("unknown like target %q", target)
	}

	for id, like := range s.data.Likes {
		if like.LikedByID != actorID {
			continue
		}
		kind, likedID := like.Target()
		if kind != target || likedID != targetID {
			continue
		}

		updatedData := cloneDataset(s.data)
		delete(updatedData.Likes, id)
		if err := s.persistDataset(updatedData); err != nil {
			return false, apierr.Wrap(apierr.KindInternal, err, "persist like removal")
		}
		s.data = updatedData
		return false, nil
	}

	like := models.Like{
		ID:        newID(),
		LikedByID: actorID,
		CreatedAt: s.now(),
	}
	switch target {
	case models.LikeTargetVideo:
		like.VideoID = targetID
	case models.LikeTargetTweet:
		like.TweetID = targetID
	case models.LikeTargetComment:
		like.CommentID = targetID
	}

	s.data.Likes[like.ID] = like
	if err := s.persist(); err != nil {
		delete(s.data.Likes, like.ID)
		return false, apierr.Wrap(apierr.KindInternal, err, "persist like")
	}

	return true, nil
}

// ToggleSubscription flips the subscription state for the (subscriber,
// channel) pair and reports the resulting state. Subscribing to your own
// channel is rejected.
func (s *Storage) ToggleSubscription(subscriberID, channelID string) (bool, error) {
	if subscriberID == "" {
		return false, apierr.Auth("authentication required")
	}
	if subscriberID == channelID {
		return false, apierr.Validation("cannot subscribe to your own channel")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[channelID]; !ok {
		return false, apierr.NotFound("channel %s not found", channelID)
	}

	for id, subscription := range s.data.Subscriptions {
		if subscription.SubscriberID != subscriberID || subscription.ChannelID != channelID {
			continue
		}

		updatedData := cloneDataset(s.data)
		delete(updatedData.Subscriptions, id)
		if err := s.persistDataset(updatedData); err != nil {
			return false, apierr.Wrap(apierr.KindInternal, err, "persist unsubscribe")
		}
		s.data = updatedData
		return false, nil
	}

	subscription := models.Subscription{
		ID:           newID(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		CreatedAt:    s.now(),
	}

	s.data.Subscriptions[subscription.ID] = subscription
	if err := s.persist(); err != nil {
		delete(s.data.Subscriptions, subscription.ID)
		return false, apierr.Wrap(apierr.KindInternal, err, "persist subscription")
	}

	return true, nil
}
