package api

import (
	"net/http"
	"strings"

	"tubeflow/internal/apierr"
	"tubeflow/internal/models"
)

// Tweets handles POST /api/tweets.
func (h *Handler) Tweets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var payload struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	tweet, err := h.Store.CreateTweet(user.ID, payload.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, tweet, "tweet created")
}

// TweetByID handles PATCH and DELETE on /api/tweets/{id}.
func (h *Handler) TweetByID(w http.ResponseWriter, r *http.Request) {
	tweetID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tweets/"), "/")
	if tweetID == "" || strings.Contains(tweetID, "/") {
		writeError(w, apierr.NotFound("unknown tweet resource"))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var payload struct {
			Content string `json:"content"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, err)
			return
		}
		tweet, err := h.Store.UpdateTweet(user.ID, tweetID, payload.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, tweet, "tweet updated")
	case http.MethodDelete:
		if err := h.Store.DeleteTweet(user.ID, tweetID); err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, nil, "tweet deleted")
	default:
		writeMethodNotAllowed(w)
	}
}

// CommentByID handles PATCH and DELETE on /api/comments/{id}.
func (h *Handler) CommentByID(w http.ResponseWriter, r *http.Request) {
	commentID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/comments/"), "/")
	if commentID == "" || strings.Contains(commentID, "/") {
		writeError(w, apierr.NotFound("unknown comment resource"))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var payload struct {
			Content string `json:"content"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, err)
			return
		}
		comment, err := h.Store.UpdateComment(user.ID, commentID, payload.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, comment, "comment updated")
	case http.MethodDelete:
		if err := h.Store.DeleteComment(user.ID, commentID); err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, nil, "comment deleted")
	default:
		writeMethodNotAllowed(w)
	}
}

var likeTargets = map[string]models.LikeTarget{
	"videos":   models.LikeTargetVideo,
	"tweets":   models.LikeTargetTweet,
	"comments": models.LikeTargetComment,
}

// ToggleLike handles POST /api/likes/{videos,tweets,comments}/{id}/toggle.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/likes/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "toggle" {
		writeError(w, apierr.NotFound("unknown like resource"))
		return
	}
	target, exists := likeTargets[parts[0]]
	if !exists {
		writeError(w, apierr.Validation("unknown like target %q", parts[0]))
		return
	}

	liked, err := h.Store.ToggleLike(user.ID, target, parts[1])
	if err != nil {
		writeError(w, err)
		return
	}
	message := "unliked"
	if liked {
		message = "liked"
	}
	writeData(w, http.StatusOK, map[string]bool{"liked": liked}, message)
}

// ToggleSubscription handles POST /api/subscriptions/{channelId}/toggle.
func (h *Handler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/subscriptions/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "toggle" {
		writeError(w, apierr.NotFound("unknown subscription resource"))
		return
	}

	subscribed, err := h.Store.ToggleSubscription(user.ID, parts[0])
	if err != nil {
		writeError(w, err)
		return
	}
	message := "unsubscribed"
	if subscribed {
		message = "subscribed"
	}
	writeData(w, http.StatusOK, map[string]bool{"subscribed": subscribed}, message)
}
