package api

import (
	"context"
	"net/http"
	"strings"

	"tubeflow/internal/apierr"
	"tubeflow/internal/models"
	"tubeflow/internal/storage"
)

// Me handles /api/users/me: GET returns the account, PATCH updates the
// mutable profile fields.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeData(w, http.StatusOK, user.Account(), "current account")
	case http.MethodPatch:
		var payload struct {
			DisplayName *string `json:"displayName"`
			Email       *string `json:"email"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, err)
			return
		}
		updated, err := h.Store.UpdateAccount(user.ID, storage.AccountUpdate{
			DisplayName: payload.DisplayName,
			Email:       payload.Email,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, updated.Account(), "account updated")
	default:
		writeMethodNotAllowed(w)
	}
}

// MeSubresource routes /api/users/me/{password,avatar,cover,history,liked}.
func (h *Handler) MeSubresource(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/me/"), "/")
	switch rest {
	case "password":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var payload struct {
			OldPassword string `json:"oldPassword"`
			NewPassword string `json:"newPassword"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, err)
			return
		}
		if err := h.Store.ChangePassword(user.ID, payload.OldPassword, payload.NewPassword); err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, nil, "password changed")
	case "avatar":
		h.replaceImage(w, r, user.ID, "avatar", h.Store.UpdateAvatar)
	case "cover":
		h.replaceImage(w, r, user.ID, "coverImage", h.Store.UpdateCoverImage)
	case "history":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		history, err := h.Store.WatchHistory(user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, history, "watch history")
	case "liked":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		liked, err := h.Store.ListLikedVideos(user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, liked, "liked videos")
	default:
		writeError(w, apierr.NotFound("unknown account resource %q", rest))
	}
}

func (h *Handler) replaceImage(w http.ResponseWriter, r *http.Request, userID, field string, replace func(context.Context, string, string) (models.User, error)) {
	if r.Method != http.MethodPut {
		writeMethodNotAllowed(w)
		return
	}
	if err := parseMultipart(r); err != nil {
		writeError(w, err)
		return
	}
	path, cleanup, err := stageUpload(r, field, true)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()

	updated, err := replace(r.Context(), userID, path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, updated.Account(), field+" updated")
}

// UserByID routes /api/users/{id}/{tweets,playlists,subscriptions}.
func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		writeError(w, apierr.NotFound("unknown user resource"))
		return
	}
	userID, resource := parts[0], parts[1]

	switch resource {
	case "tweets":
		tweets, err := h.Store.ListUserTweets(userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, tweets, "user tweets")
	case "playlists":
		playlists, err := h.Store.ListUserPlaylists(userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, playlists, "user playlists")
	case "subscriptions":
		channels, err := h.Store.ListSubscribedChannels(userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, channels, "subscribed channels")
	default:
		writeError(w, apierr.NotFound("unknown user resource %q", resource))
	}
}
