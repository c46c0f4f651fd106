package api

import (
	"net/http"
	"strings"

	"tubeflow/internal/apierr"
	"tubeflow/internal/pagination"
)

// ChannelByHandle routes /api/channels/{handle} and the videos and
// subscribers subresources addressed by channel ID.
func (h *Handler) ChannelByHandle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/channels/"), "/")
	parts := strings.Split(rest, "/")
	if parts[0] == "" {
		writeError(w, apierr.Validation("channel handle is required"))
		return
	}

	if len(parts) == 1 {
		profile, err := h.Store.GetChannelProfile(parts[0], h.actorID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, profile, "channel profile")
		return
	}

	switch parts[1] {
	case "videos":
		params, err := pagination.ParseQuery(r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		page, err := h.Store.ListChannelVideos(parts[0], h.actorID(r), params)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, page, "channel videos")
	case "subscribers":
		subscribers, err := h.Store.ListSubscribers(parts[0])
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, subscribers, "channel subscribers")
	default:
		writeError(w, apierr.NotFound("unknown channel resource %q", parts[1]))
	}
}

// Dashboard routes /api/dashboard/{stats,videos} for the authenticated
// channel owner. The videos listing includes unpublished uploads.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/dashboard/"), "/")
	switch rest {
	case "stats":
		stats, err := h.Store.ChannelStats(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, stats, "channel stats")
	case "videos":
		params, err := pagination.ParseQuery(r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		page, err := h.Store.ListChannelVideos(user.ID, user.ID, params)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, page, "channel videos")
	default:
		writeError(w, apierr.NotFound("unknown dashboard resource %q", rest))
	}
}
