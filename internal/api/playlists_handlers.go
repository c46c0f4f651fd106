package api

import (
	"net/http"
	"strings"

	"tubeflow/internal/apierr"
	"tubeflow/internal/storage"
)

// Playlists handles POST /api/playlists.
func (h *Handler) Playlists(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	playlist, err := h.Store.CreatePlaylist(user.ID, payload.Name, payload.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, playlist, "playlist created")
}

// PlaylistByID routes /api/playlists/{id} and its videos subresource
// /api/playlists/{id}/videos/{videoId}.
func (h *Handler) PlaylistByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/playlists/"), "/")
	parts := strings.Split(rest, "/")
	playlistID := parts[0]
	if playlistID == "" {
		writeError(w, apierr.Validation("playlist id is required"))
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			playlist, ok := h.Store.GetPlaylist(playlistID)
			if !ok {
				writeError(w, apierr.NotFound("playlist %s not found", playlistID))
				return
			}
			writeData(w, http.StatusOK, playlist, "playlist")
		case http.MethodPatch:
			h.updatePlaylist(w, r, playlistID)
		case http.MethodDelete:
			user, ok := h.requireAuthenticatedUser(w, r)
			if !ok {
				return
			}
			if err := h.Store.DeletePlaylist(user.ID, playlistID); err != nil {
				writeError(w, err)
				return
			}
			writeData(w, http.StatusOK, nil, "playlist deleted")
		default:
			writeMethodNotAllowed(w)
		}
		return
	}

	if len(parts) == 3 && parts[1] == "videos" {
		h.playlistVideo(w, r, playlistID, parts[2])
		return
	}
	writeError(w, apierr.NotFound("unknown playlist resource"))
}

func (h *Handler) updatePlaylist(w http.ResponseWriter, r *http.Request, playlistID string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var payload struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	playlist, err := h.Store.UpdatePlaylist(user.ID, playlistID, storage.PlaylistUpdate{
		Name:        payload.Name,
		Description: payload.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, playlist, "playlist updated")
}

func (h *Handler) playlistVideo(w http.ResponseWriter, r *http.Request, playlistID, videoID string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		playlist, err := h.Store.AddVideoToPlaylist(user.ID, playlistID, videoID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, playlist, "video added to playlist")
	case http.MethodDelete:
		playlist, err := h.Store.RemoveVideoFromPlaylist(user.ID, playlistID, videoID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, playlist, "video removed from playlist")
	default:
		writeMethodNotAllowed(w)
	}
}
