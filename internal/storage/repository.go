package storage

import (
	"context"

	"tubeflow/internal/models"
	"tubeflow/internal/pagination"
)

// Repository exposes the datastore operations required by API handlers.
type Repository interface {
	Ping(ctx context.Context) error

	Register(ctx context.Context, params RegisterParams) (models.User, error)
	Authenticate(identifier, password string) (models.User, error)
	GetUser(id string) (models.User, bool)
	FindUserByHandle(handle string) (models.User, bool)
	UpdateAccount(userID string, update AccountUpdate) (models.User, error)
	ChangePassword(userID, oldPassword, newPassword string) error
	UpdateAvatar(ctx context.Context, userID, localPath string) (models.User, error)
	UpdateCoverImage(ctx context.Context, userID, localPath string) (models.User, error)

	PublishVideo(ctx context.Context, params PublishVideoParams) (models.Video, error)
	GetVideo(id string) (models.Video, bool)
	RecordView(videoID, viewerID string) (models.Video, error)
	UpdateVideo(ctx context.Context, actorID, videoID string, update VideoUpdate) (models.Video, error)
	DeleteVideo(ctx context.Context, actorID, videoID string) error
	TogglePublish(actorID, videoID string) (models.Video, error)

	CreateTweet(ownerID, content string) (models.Tweet, error)
	GetTweet(id string) (models.Tweet, bool)
	ListUserTweets(userID string) ([]models.Tweet, error)
	UpdateTweet(actorID, tweetID, content string) (models.Tweet, error)
	DeleteTweet(actorID, tweetID string) error

	AddComment(ownerID, videoID, content string) (models.Comment, error)
	GetComment(id string) (models.Comment, bool)
	UpdateComment(actorID, commentID, content string) (models.Comment, error)
	DeleteComment(actorID, commentID string) error

	CreatePlaylist(ownerID, name, description string) (models.Playlist, error)
	GetPlaylist(id string) (models.Playlist, bool)
	ListUserPlaylists(userID string) ([]models.Playlist, error)
	UpdatePlaylist(actorID, playlistID string, update PlaylistUpdate) (models.Playlist, error)
	AddVideoToPlaylist(actorID, playlistID, videoID string) (models.Playlist, error)
	RemoveVideoFromPlaylist(actorID, playlistID, videoID string) (models.Playlist, error)
	DeletePlaylist(actorID, playlistID string) error

	ToggleLike(actorID string, target models.LikeTarget, targetID string) (bool, error)
	ToggleSubscription(subscriberID, channelID string) (bool, error)

	ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error)
	ListChannelVideos(channelID, viewerID string, params pagination.Params) (pagination.Page[models.Video], error)
	ListLikedVideos(actorID string) ([]models.VideoWithOwner, error)
	GetChannelProfile(handle, viewerID string) (models.ChannelProfile, error)
	WatchHistory(actorID string) ([]models.VideoWithOwner, error)
	ListVideoComments(videoID string, params pagination.Params) (pagination.Page[models.CommentWithOwner], error)
	SearchVideos(params SearchParams) (pagination.Page[models.VideoWithOwner], error)
	ListSubscribers(channelID string) ([]models.PublicUser, error)
	ListSubscribedChannels(subscriberID string) ([]models.PublicUser, error)
}

var _ Repository = (*Storage)(nil)
