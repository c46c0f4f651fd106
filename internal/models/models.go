package models

import "time"

// LikeTarget identifies which kind of entity a Like points at.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetTweet   LikeTarget = "tweet"
	LikeTargetComment LikeTarget = "comment"
)

// MediaRef points at an asset held by the external media host. PublicID is
// the provider-assigned handle used for deletion.
type MediaRef struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

func (m MediaRef) IsZero() bool {
	return m.URL == "" && m.PublicID == ""
}

type User struct {
	ID           string    `json:"id"`
	Handle       string    `json:"handle"`
	DisplayName  string    `json:"displayName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Avatar       MediaRef  `json:"avatar"`
	CoverImage   MediaRef  `json:"coverImage"`
	WatchHistory []string  `json:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the only shape of a user ever exposed to other actors.
type PublicUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Handle      string `json:"handle"`
	AvatarURL   string `json:"avatarUrl"`
}

// Account returns the user shaped for returning to its own owner: full
// profile fields with the credential hash stripped.
func (u User) Account() User {
	u.PasswordHash = ""
	return u
}

// Public strips the user down to its public-safe projection.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Handle:      u.Handle,
		AvatarURL:   u.Avatar.URL,
	}
}

type Video struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"ownerId"`
	VideoFile       MediaRef  `json:"videoFile"`
	Thumbnail       MediaRef  `json:"thumbnail"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DurationSeconds float64   `json:"durationSeconds"`
	Views           int64     `json:"views"`
	IsPublished     bool      `json:"isPublished"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Tweet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	VideoID   string    `json:"videoId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Playlist holds an ordered, duplicate-free set of video references.
type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideoIDs    []string  `json:"videoIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Subscription links a subscriber to a channel. At most one document exists
// per (subscriber, channel) pair.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Like records exactly one of VideoID, TweetID, or CommentID. At most one
// document exists per (likedBy, target) pair.
type Like struct {
	ID        string    `json:"id"`
	LikedByID string    `json:"likedById"`
	VideoID   string    `json:"videoId,omitempty"`
	TweetID   string    `json:"tweetId,omitempty"`
	CommentID string    `json:"commentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Target reports the kind and identifier of the liked entity.
func (l Like) Target() (LikeTarget, string) {
	switch {
	case l.VideoID != "":
		return LikeTargetVideo, l.VideoID
	case l.TweetID != "":
		return LikeTargetTweet, l.TweetID
	default:
		return LikeTargetComment, l.CommentID
	}
}

// VideoWithOwner is a video joined to its owner's public projection.
type VideoWithOwner struct {
	Video
	Owner PublicUser `json:"owner"`
}

// CommentWithOwner is a comment joined to its author's public projection.
type CommentWithOwner struct {
	Comment
	Owner PublicUser `json:"owner"`
}

// ChannelStats aggregates per-channel counters. Every field defaults to
// zero when the underlying group produces no rows.
type ChannelStats struct {
	Subscribers  int64 `json:"subscribers"`
	TotalVideos  int64 `json:"totalVideos"`
	TotalViews   int64 `json:"totalViews"`
	VideoLikes   int64 `json:"videoLikes"`
	TweetLikes   int64 `json:"tweetLikes"`
	CommentLikes int64 `json:"commentLikes"`
}

// ChannelProfile is the public channel page: the owner's public fields plus
// subscriber counts and the requesting actor's subscription state.
type ChannelProfile struct {
	PublicUser
	CoverImageURL     string `json:"coverImageUrl"`
	SubscriberCount   int64  `json:"subscriberCount"`
	SubscribedToCount int64  `json:"subscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}
