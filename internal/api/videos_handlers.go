package api

import (
	"net/http"
	"strings"

	"tubeflow/internal/apierr"
	"tubeflow/internal/pagination"
	"tubeflow/internal/storage"
)

// Videos handles /api/videos: GET runs the paginated search, POST
// publishes a new video from a multipart body.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.searchVideos(w, r)
	case http.MethodPost:
		h.publishVideo(w, r)
	default:
		writeMethodNotAllowed(w)
	}
}

func (h *Handler) searchVideos(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	query := r.URL.Query()
	page, err := h.Store.SearchVideos(storage.SearchParams{
		Query:   query.Get("query"),
		OwnerID: query.Get("ownerId"),
		SortBy:  query.Get("sortBy"),
		SortAsc: strings.EqualFold(query.Get("sortDir"), "asc"),
		Page:    params,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, page, "videos")
}

func (h *Handler) publishVideo(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if err := parseMultipart(r); err != nil {
		writeError(w, err)
		return
	}

	videoPath, videoCleanup, err := stageUpload(r, "videoFile", true)
	if err != nil {
		writeError(w, err)
		return
	}
	defer videoCleanup()

	thumbPath, thumbCleanup, err := stageUpload(r, "thumbnail", true)
	if err != nil {
		writeError(w, err)
		return
	}
	defer thumbCleanup()

	video, err := h.Store.PublishVideo(r.Context(), storage.PublishVideoParams{
		OwnerID:       user.ID,
		Title:         r.FormValue("title"),
		Description:   r.FormValue("description"),
		VideoPath:     videoPath,
		ThumbnailPath: thumbPath,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, video, "video published")
}

// VideoByID routes /api/videos/{id} plus the toggle-publish and comments
// subresources.
func (h *Handler) VideoByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/videos/"), "/")
	parts := strings.Split(rest, "/")
	videoID := parts[0]
	if videoID == "" {
		writeError(w, apierr.Validation("video id is required"))
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.getVideo(w, r, videoID)
		case http.MethodPatch:
			h.updateVideo(w, r, videoID)
		case http.MethodDelete:
			h.deleteVideo(w, r, videoID)
		default:
			writeMethodNotAllowed(w)
		}
		return
	}

	switch parts[1] {
	case "toggle-publish":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		video, err := h.Store.TogglePublish(user.ID, videoID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, video, "publish state toggled")
	case "comments":
		h.videoComments(w, r, videoID)
	default:
		writeError(w, apierr.NotFound("unknown video resource %q", parts[1]))
	}
}

// getVideo returns the video and records the view. Unpublished videos are
// only visible to their owner.
func (h *Handler) getVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	video, ok := h.Store.GetVideo(videoID)
	if !ok {
		writeError(w, apierr.NotFound("video %s not found", videoID))
		return
	}
	viewer := h.actorID(r)
	if !video.IsPublished && video.OwnerID != viewer {
		writeError(w, apierr.NotFound("video %s not found", videoID))
		return
	}

	video, err := h.Store.RecordView(videoID, viewer)
	if err != nil {
		writeError(w, err)
		return
	}

	owner, _ := h.Store.GetUser(video.OwnerID)
	writeData(w, http.StatusOK, map[string]any{
		"video": video,
		"owner": owner.Public(),
	}, "video")
}

func (h *Handler) updateVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	update := storage.VideoUpdate{}
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/") {
		if err := parseMultipart(r); err != nil {
			writeError(w, err)
			return
		}
		if values, exists := r.MultipartForm.Value["title"]; exists && len(values) > 0 {
			update.Title = &values[0]
		}
		if values, exists := r.MultipartForm.Value["description"]; exists && len(values) > 0 {
			update.Description = &values[0]
		}
		thumbPath, cleanup, err := stageUpload(r, "thumbnail", false)
		if err != nil {
			writeError(w, err)
			return
		}
		defer cleanup()
		if thumbPath != "" {
			update.ThumbnailPath = &thumbPath
		}
	} else {
		var payload struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, err)
			return
		}
		update.Title = payload.Title
		update.Description = payload.Description
	}

	video, err := h.Store.UpdateVideo(r.Context(), user.ID, videoID, update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, video, "video updated")
}

func (h *Handler) deleteVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteVideo(r.Context(), user.ID, videoID); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, nil, "video deleted")
}

// videoComments handles GET (paginated listing) and POST (create) on
// /api/videos/{id}/comments.
func (h *Handler) videoComments(w http.ResponseWriter, r *http.Request, videoID string) {
	switch r.Method {
	case http.MethodGet:
		params, err := pagination.ParseQuery(r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		page, err := h.Store.ListVideoComments(videoID, params)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusOK, page, "video comments")
	case http.MethodPost:
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
		comment, err := h.Store.AddComment(user.ID, videoID, payload.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeData(w, http.StatusCreated, comment, "comment added")
	default:
		writeMethodNotAllowed(w)
	}
}
