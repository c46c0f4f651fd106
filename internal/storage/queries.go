package storage

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"tubeflow/internal/apierr"
	"tubeflow/internal/models"
	"tubeflow/internal/pagination"
	"tubeflow/internal/pipeline"
)

// Collection names used as pipeline sources.
const (
	colUsers         = "users"
	colVideos        = "videos"
	colTweets        = "tweets"
	colComments      = "comments"
	colSubscriptions = "subscriptions"
	colLikes         = "likes"
)

// snapshot is a point-in-time copy of the dataset: the pipeline environment
// for aggregation plus the cloned maps for hydrating results back into
// typed models. Pipelines run against it without holding the store lock.
type snapshot struct {
	data dataset
	env  pipeline.Env
}

func (s *Storage) snapshot() snapshot {
	s.mu.RLock()
	data := cloneDataset(s.data)
	s.mu.RUnlock()

	env := pipeline.Env{
		colUsers:         make(pipeline.Collection, 0, len(data.Users)),
		colVideos:        make(pipeline.Collection, 0, len(data.Videos)),
		colTweets:        make(pipeline.Collection, 0, len(data.Tweets)),
		colComments:      make(pipeline.Collection, 0, len(data.Comments)),
		colSubscriptions: make(pipeline.Collection, 0, len(data.Subscriptions)),
		colLikes:         make(pipeline.Collection, 0, len(data.Likes)),
	}
	for _, user := range data.Users {
		env[colUsers] = append(env[colUsers], userDoc(user))
	}
	for _, video := range data.Videos {
		env[colVideos] = append(env[colVideos], videoDoc(video))
	}
	for _, tweet := range data.Tweets {
		env[colTweets] = append(env[colTweets], tweetDoc(tweet))
	}
	for _, comment := range data.Comments {
		env[colComments] = append(env[colComments], commentDoc(comment))
	}
	for _, subscription := range data.Subscriptions {
		env[colSubscriptions] = append(env[colSubscriptions], subscriptionDoc(subscription))
	}
	for _, like := range data.Likes {
		env[colLikes] = append(env[colLikes], likeDoc(like))
	}

	return snapshot{data: data, env: env}
}

func userDoc(u models.User) pipeline.Doc {
	return pipeline.Doc{
		"id":           u.ID,
		"handle":       u.Handle,
		"displayName":  u.DisplayName,
		"avatarUrl":    u.Avatar.URL,
		"watchHistory": append([]string(nil), u.WatchHistory...),
		"createdAt":    u.CreatedAt,
	}
}

func videoDoc(v models.Video) pipeline.Doc {
	return pipeline.Doc{
		"id":              v.ID,
		"ownerId":         v.OwnerID,
		"title":           v.Title,
		"description":     v.Description,
		"durationSeconds": v.DurationSeconds,
		"views":           v.Views,
		"isPublished":     v.IsPublished,
		"createdAt":       v.CreatedAt,
	}
}

func tweetDoc(t models.Tweet) pipeline.Doc {
	return pipeline.Doc{
		"id":        t.ID,
		"ownerId":   t.OwnerID,
		"content":   t.Content,
		"createdAt": t.CreatedAt,
	}
}

func commentDoc(c models.Comment) pipeline.Doc {
	return pipeline.Doc{
		"id":        c.ID,
		"ownerId":   c.OwnerID,
		"videoId":   c.VideoID,
		"content":   c.Content,
		"createdAt": c.CreatedAt,
	}
}

func subscriptionDoc(sub models.Subscription) pipeline.Doc {
	return pipeline.Doc{
		"id":           sub.ID,
		"subscriberId": sub.SubscriberID,
		"channelId":    sub.ChannelID,
		"createdAt":    sub.CreatedAt,
	}
}

// likeDoc only sets the target field that is populated, so a MatchEq on
// "videoId" never matches tweet or comment likes.
func likeDoc(l models.Like) pipeline.Doc {
	doc := pipeline.Doc{
		"id":        l.ID,
		"likedById": l.LikedByID,
		"createdAt": l.CreatedAt,
	}
	if l.VideoID != "" {
		doc["videoId"] = l.VideoID
	}
	if l.TweetID != "" {
		doc["tweetId"] = l.TweetID
	}
	if l.CommentID != "" {
		doc["commentId"] = l.CommentID
	}
	return doc
}

func docString(doc pipeline.Doc, field string) string {
	value, _ := doc[field].(string)
	return value
}

func docInt64(doc pipeline.Doc, field string) int64 {
	value, _ := doc[field].(int64)
	return value
}

// countDocs runs a pipeline that ends in a Count stage and returns the
// counter, defaulting to zero when the group produced no rows.
func countDocs(env pipeline.Env, p pipeline.Pipeline) (int64, error) {
	docs, err := p.Run(env)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	return docInt64(docs[0], "count"), nil
}

// ChannelStats aggregates the dashboard counters for a channel. The like
// counters tally likes the channel's user has given, split by target type.
// The counter families run concurrently; a channel with no activity
// reports all zeroes rather than an error.
func (s *Storage) ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error) {
	if _, ok := s.GetUser(channelID); !ok {
		return models.ChannelStats{}, apierr.NotFound("channel %s not found", channelID)
	}

	snap := s.snapshot()
	var stats models.ChannelStats

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		count, err := countDocs(snap.env, pipeline.New(colSubscriptions,
			pipeline.MatchEq("channelId", channelID),
			pipeline.Count{As: "count"},
		))
		if err != nil {
			return err
		}
		stats.Subscribers = count
		return nil
	})

	g.Go(func() error {
		docs, err := pipeline.New(colVideos,
			pipeline.MatchEq("ownerId", channelID),
			pipeline.Group{Accums: []pipeline.Accum{
				{As: "totalVideos", Op: pipeline.AccumCount},
				{As: "totalViews", Op: pipeline.AccumSum, Field: "views"},
			}},
		).Run(snap.env)
		if err != nil {
			return err
		}
		if len(docs) > 0 {
			stats.TotalVideos = docInt64(docs[0], "totalVideos")
			stats.TotalViews = docInt64(docs[0], "totalViews")
		}
		return nil
	})

	g.Go(func() error {
		docs, err := pipeline.New(colLikes,
			pipeline.MatchEq("likedById", channelID),
			pipeline.Group{Accums: []pipeline.Accum{
				{As: "videoLikes", Op: pipeline.AccumCondCount, Cond: func(d pipeline.Doc) bool { return d["videoId"] != nil }},
				{As: "tweetLikes", Op: pipeline.AccumCondCount, Cond: func(d pipeline.Doc) bool { return d["tweetId"] != nil }},
				{As: "commentLikes", Op: pipeline.AccumCondCount, Cond: func(d pipeline.Doc) bool { return d["commentId"] != nil }},
			}},
		).Run(snap.env)
		if err != nil {
			return err
		}
		if len(docs) > 0 {
			stats.VideoLikes = docInt64(docs[0], "videoLikes")
			stats.TweetLikes = docInt64(docs[0], "tweetLikes")
			stats.CommentLikes = docInt64(docs[0], "commentLikes")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.ChannelStats{}, apierr.Wrap(apierr.KindInternal, err, "aggregate channel stats")
	}

	return stats, nil
}

// ListChannelVideos returns one page of a channel's videos, newest first.
// Unpublished videos are only visible to the channel owner.
func (s *Storage) ListChannelVideos(channelID, viewerID string, params pagination.Params) (pagination.Page[models.Video], error) {
	if _, ok := s.GetUser(channelID); !ok {
		return pagination.Page[models.Video]{}, apierr.NotFound("channel %s not found", channelID)
	}

	snap := s.snapshot()
	includeUnpublished := viewerID == channelID

	docs, err := pipeline.New(colVideos,
		pipeline.MatchEq("ownerId", channelID),
		pipeline.Match{Pred: func(doc pipeline.Doc) bool {
			published, _ := doc["isPublished"].(bool)
			return published || includeUnpublished
		}},
		pipeline.Sort{Field: "createdAt", Desc: true},
	).Run(snap.env)
	if err != nil {
		return pagination.Page[models.Video]{}, apierr.Wrap(apierr.KindInternal, err, "list channel videos")
	}

	videos := make([]models.Video, 0, len(docs))
	for _, doc := range docs {
		if video, ok := snap.data.Videos[docString(doc, "id")]; ok {
			videos = append(videos, video)
		}
	}
	return pagination.New(videos, params), nil
}

// ListLikedVideos returns the videos an actor has liked, most recent like
// first. Likes on tweets and comments never appear, and likes pointing at
// deleted videos are skipped.
func (s *Storage) ListLikedVideos(actorID string) ([]models.VideoWithOwner, error) {
	if _, ok := s.GetUser(actorID); !ok {
		return nil, apierr.NotFound("user %s not found", actorID)
	}

	snap := s.snapshot()

	docs, err := pipeline.New(colLikes,
		pipeline.Match{Pred: func(doc pipeline.Doc) bool {
			return docString(doc, "likedById") == actorID && doc["videoId"] != nil
		}},
		pipeline.Sort{Field: "createdAt", Desc: true},
		pipeline.Lookup{
			From:         colVideos,
			LocalField:   "videoId",
			ForeignField: "id",
			As:           "video",
		},
		pipeline.First{Field: "video"},
	).Run(snap.env)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, err, "list liked videos")
	}

	liked := make([]models.VideoWithOwner, 0, len(docs))
	for _, doc := range docs {
		joined, ok := doc["video"].(pipeline.Doc)
		if !ok {
			continue
		}
		video, ok := snap.data.Videos[docString(joined, "id")]
		if !ok {
			continue
		}
		liked = append(liked, models.VideoWithOwner{
			Video: video,
			Owner: snap.data.Users[video.OwnerID].Public(),
		})
	}
	return liked, nil
}

// GetChannelProfile assembles the public channel page for a handle,
// including the viewer's subscription state. An empty viewerID reports
// IsSubscribed as false.
func (s *Storage) GetChannelProfile(handle, viewerID string) (models.ChannelProfile, error) {
	channel, ok := s.FindUserByHandle(handle)
	if !ok {
		return models.ChannelProfile{}, apierr.NotFound("channel %s not found", handle)
	}

	snap := s.snapshot()

	subscriberCount, err := countDocs(snap.env, pipeline.New(colSubscriptions,
		pipeline.MatchEq("channelId", channel.ID),
		pipeline.Count{As: "count"},
	))
	if err != nil {
		return models.ChannelProfile{}, apierr.Wrap(apierr.KindInternal, err, "count subscribers")
	}

	subscribedToCount, err := countDocs(snap.env, pipeline.New(colSubscriptions,
		pipeline.MatchEq("subscriberId", channel.ID),
		pipeline.Count{As: "count"},
	))
	if err != nil {
		return models.ChannelProfile{}, apierr.Wrap(apierr.KindInternal, err, "count subscribed channels")
	}

	isSubscribed := false
	if viewerID != "" {
		count, err := countDocs(snap.env, pipeline.New(colSubscriptions,
			pipeline.Match{Pred: func(doc pipeline.Doc) bool {
				return docString(doc, "channelId") == channel.ID && docString(doc, "subscriberId") == viewerID
			}},
			pipeline.Count{As: "count"},
		))
		if err != nil {
			return models.ChannelProfile{}, apierr.Wrap(apierr.KindInternal, err, "check subscription")
		}
		isSubscribed = count > 0
	}

	return models.ChannelProfile{
		PublicUser:        channel.Public(),
		CoverImageURL:     channel.CoverImage.URL,
		SubscriberCount:   subscriberCount,
		SubscribedToCount: subscribedToCount,
		IsSubscribed:      isSubscribed,
	}, nil
}

// WatchHistory returns the actor's watched videos in history order, most
// recent first. References to deleted videos are silently skipped.
func (s *Storage) WatchHistory(actorID string) ([]models.VideoWithOwner, error) {
	if _, ok := s.GetUser(actorID); !ok {
		return nil, apierr.NotFound("user %s not found", actorID)
	}

	snap := s.snapshot()

	docs, err := pipeline.New(colUsers,
		pipeline.MatchEq("id", actorID),
		pipeline.Lookup{
			From:         colVideos,
			LocalField:   "watchHistory",
			ForeignField: "id",
			As:           "videos",
		},
	).Run(snap.env)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, err, "load watch history")
	}
	if len(docs) == 0 {
		return []models.VideoWithOwner{}, nil
	}

	joined, _ := docs[0]["videos"].([]pipeline.Doc)
	history := make([]models.VideoWithOwner, 0, len(joined))
	for _, doc := range joined {
		video, ok := snap.data.Videos[docString(doc, "id")]
		if !ok {
			continue
		}
		history = append(history, models.VideoWithOwner{
			Video: video,
			Owner: snap.data.Users[video.OwnerID].Public(),
		})
	}
	return history, nil
}

// ListVideoComments returns one page of a video's comments, newest first,
// each joined to its author's public projection.
func (s *Storage) ListVideoComments(videoID string, params pagination.Params) (pagination.Page[models.CommentWithOwner], error) {
	if _, ok := s.GetVideo(videoID); !ok {
		return pagination.Page[models.CommentWithOwner]{}, apierr.NotFound("video %s not found", videoID)
	}

	snap := s.snapshot()

	docs, err := pipeline.New(colComments,
		pipeline.MatchEq("videoId", videoID),
		pipeline.Sort{Field: "createdAt", Desc: true},
	).Run(snap.env)
	if err != nil {
		return pagination.Page[models.CommentWithOwner]{}, apierr.Wrap(apierr.KindInternal, err, "list video comments")
	}

	comments := make([]models.CommentWithOwner, 0, len(docs))
	for _, doc := range docs {
		comment, ok := snap.data.Comments[docString(doc, "id")]
		if !ok {
			continue
		}
		comments = append(comments, models.CommentWithOwner{
			Comment: comment,
			Owner:   snap.data.Users[comment.OwnerID].Public(),
		})
	}
	return pagination.New(comments, params), nil
}

// SearchParams shape a paginated video search. Query matches title or
// description with Unicode case folding; OwnerID optionally restricts the
// search to one channel. SortBy must be one of createdAt, views, title, or
// durationSeconds; it defaults to createdAt descending.
type SearchParams struct {
	Query   string
	OwnerID string
	SortBy  string
	SortAsc bool
	Page    pagination.Params
}

var searchSortFields = map[string]struct{}{
	"createdAt":       {},
	"views":           {},
	"title":           {},
	"durationSeconds": {},
}

// SearchVideos returns one page of published videos matching the search,
// joined to their owners' public projections. Totals count every match,
// not just the returned page.
func (s *Storage) SearchVideos(params SearchParams) (pagination.Page[models.VideoWithOwner], error) {
	sortBy := params.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
		params.SortAsc = false
	}
	if _, ok := searchSortFields[sortBy]; !ok {
		return pagination.Page[models.VideoWithOwner]{}, apierr.Validation("unsupported sort field %q", params.SortBy)
	}

	snap := s.snapshot()
	query := caseFolder.String(strings.TrimSpace(params.Query))

	stages := []pipeline.Stage{
		pipeline.Match{Pred: func(doc pipeline.Doc) bool {
			published, _ := doc["isPublished"].(bool)
			if !published {
				return false
			}
			if query == "" {
				return true
			}
			title := caseFolder.String(docString(doc, "title"))
			description := caseFolder.String(docString(doc, "description"))
			return strings.Contains(title, query) || strings.Contains(description, query)
		}},
	}
	if params.OwnerID != "" {
		stages = append(stages, pipeline.MatchEq("ownerId", params.OwnerID))
	}
	stages = append(stages, pipeline.Sort{Field: sortBy, Desc: !params.SortAsc})

	docs, err := pipeline.New(colVideos, stages...).Run(snap.env)
	if err != nil {
		return pagination.Page[models.VideoWithOwner]{}, apierr.Wrap(apierr.KindInternal, err, "search videos")
	}

	results := make([]models.VideoWithOwner, 0, len(docs))
	for _, doc := range docs {
		video, ok := snap.data.Videos[docString(doc, "id")]
		if !ok {
			continue
		}
		results = append(results, models.VideoWithOwner{
			Video: video,
			Owner: snap.data.Users[video.OwnerID].Public(),
		})
	}
	return pagination.New(results, params.Page), nil
}

// ListSubscribers returns the public projections of a channel's
// subscribers, most recent subscription first.
func (s *Storage) ListSubscribers(channelID string) ([]models.PublicUser, error) {
	return s.listSubscriptionUsers(channelID, "channelId", "subscriberId")
}

// ListSubscribedChannels returns the public projections of the channels a
// user subscribes to, most recent subscription first.
func (s *Storage) ListSubscribedChannels(subscriberID string) ([]models.PublicUser, error) {
	return s.listSubscriptionUsers(subscriberID, "subscriberId", "channelId")
}

func (s *Storage) listSubscriptionUsers(userID, matchField, joinField string) ([]models.PublicUser, error) {
	if _, ok := s.GetUser(userID); !ok {
		return nil, apierr.NotFound("user %s not found", userID)
	}

	snap := s.snapshot()

	docs, err := pipeline.New(colSubscriptions,
		pipeline.MatchEq(matchField, userID),
		pipeline.Sort{Field: "createdAt", Desc: true},
		pipeline.Lookup{
			From:         colUsers,
			LocalField:   joinField,
			ForeignField: "id",
			As:           "user",
		},
		pipeline.First{Field: "user"},
	).Run(snap.env)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, err, "list subscription users")
	}

	users := make([]models.PublicUser, 0, len(docs))
	for _, doc := range docs {
		joined, ok := doc["user"].(pipeline.Doc)
		if !ok {
			continue
		}
		user, ok := snap.data.Users[docString(joined, "id")]
		if !ok {
			continue
		}
		users = append(users, user.Public())
	}
	return users, nil
}
