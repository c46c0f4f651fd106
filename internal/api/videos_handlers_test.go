package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pageResult struct {
	Items      []json.RawMessage `json:"items"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalItems int               `json:"totalItems"`
	TotalPages int               `json:"totalPages"`
	HasNext    bool              `json:"hasNext"`
	HasPrev    bool              `json:"hasPrev"`
}

func TestPublishVideoMultipart(t *testing.T) {
	handler, store := newTestHandler(t)
	ownerID := registerTestAccount(t, store, "uploader")
	token := issueAccessToken(t, handler, ownerID)

	body, contentType := multipartBody(t, map[string]string{
		"title":       "My First Upload",
		"description": "recorded on a phone",
	}, map[string]string{
		"videoFile": tempMediaFile(t, "clip.mp4"),
		"thumbnail": tempMediaFile(t, "clip.png"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/videos", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.Videos(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}
	data, _ := decodeEnvelope(t, rec)
	var video struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		IsPublished bool   `json:"isPublished"`
	}
	if err := json.Unmarshal(data, &video); err != nil {
		t.Fatalf("decode video: %v", err)
	}
	if video.Title != "My First Upload" || !video.IsPublished {
		t.Fatalf("unexpected video payload: %+v", video)
	}
	if _, ok := store.GetVideo(video.ID); !ok {
		t.Fatalf("published video %s missing from store", video.ID)
	}
}

func TestSearchVideosPagination(t *testing.T) {
	handler, store := newTestHandler(t)
	ownerID := registerTestAccount(t, store, "prolific")
	for i := 0; i < 12; i++ {
		publishTestVideo(t, store, ownerID, fmt.Sprintf("episode %02d", i))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/videos?page=2&limit=5", nil)
	rec := httptest.NewRecorder()
	handler.Videos(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}
	data, _ := decodeEnvelope(t, rec)
	var page pageResult
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.TotalItems != 12 || page.TotalPages != 3 {
		t.Fatalf("expected 12 items over 3 pages, got %d/%d", page.TotalItems, page.TotalPages)
	}
	if len(page.Items) != 5 || !page.HasNext || !page.HasPrev {
		t.Fatalf("unexpected middle page: %+v", page)
	}
}

func TestSearchVideosRejectsUnknownSortField(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/videos?sortBy=ownerId", nil)
	rec := httptest.NewRecorder()
	handler.Videos(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body %s)", rec.Code, rec.Body.String())
	}
}

func TestGetVideoRecordsView(t *testing.T) {
	handler, store := newTestHandler(t)
	ownerID := registerTestAccount(t, store, "filmmaker")
	videoID := publishTestVideo(t, store, ownerID, "premiere")

	rec := httptest.NewRecorder()
	handler.VideoByID(rec, httptest.NewRequest(http.MethodGet, "/api/videos/"+videoID, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}
	data, _ := decodeEnvelope(t, rec)
	var payload struct {
		Video struct {
			Views int64 `json:"views"`
		} `json:"video"`
		Owner struct {
			Handle string `json:"handle"`
		} `json:"owner"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode video payload: %v", err)
	}
	if payload.Video.Views != 1 {
		t.Fatalf("expected 1 view after fetch, got %d", payload.Video.Views)
	}
	if payload.Owner.Handle != "filmmaker" {
		t.Fatalf("expected owner projection, got %+v", payload.Owner)
	}
}

func TestUnpublishedVideoHiddenFromOthers(t *testing.T) {
	handler, store := newTestHandler(t)
	ownerID := registerTestAccount(t, store, "private")
	viewerID := registerTestAccount(t, store, "nosy")
	videoID := publishTestVideo(t, store, ownerID, "draft")
	ownerToken := issueAccessToken(t, handler, ownerID)

	req := authedRequest(t, http.MethodPost, "/api/videos/"+videoID+"/toggle-publish", ownerToken, nil)
	rec := httptest.NewRecorder()
	handler.VideoByID(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle-publish: expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}

	viewerToken := issueAccessToken(t, handler, viewerID)
	rec = httptest.NewRecorder()
	handler.VideoByID(rec, authedRequest(t, http.MethodGet, "/api/videos/"+videoID, viewerToken, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-owner, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.VideoByID(rec, authedRequest(t, http.MethodGet, "/api/videos/"+videoID, ownerToken, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d (body %s)", rec.Code, rec.Body.String())
	}
}

func TestVideoCommentsEndpoint(t *testing.T) {
	handler, store := newTestHandler(t)
	ownerID := registerTestAccount(t, store, "host")
	commenterID := registerTestAccount(t, store, "guest")
	videoID := publishTestVideo(t, store, ownerID, "qna")
	token := issueAccessToken(t, handler, commenterID)

	payload := bytes.NewBufferString(`{"content":"great video"}`)
	rec := httptest.NewRecorder()
	handler.VideoByID(rec, authedRequest(t, http.MethodPost, "/api/videos/"+videoID+"/comments", token, payload))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create comment: expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.VideoByID(rec, httptest.NewRequest(http.MethodGet, "/api/videos/"+videoID+"/comments", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list comments: expected 200, got %d (body %s)", rec.Code, rec.Body.String())
	}
	data, _ := decodeEnvelope(t, rec)
	var page pageResult
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("decode comment page: %v", err)
	}
	if page.TotalItems != 1 || len(page.Items) != 1 {
		t.Fatalf("expected one comment, got %+v", page)
	}
	var comment struct {
		Content string `json:"content"`
		Owner   struct {
			Handle string `json:"handle"`
		} `json:"owner"`
	}
	if err := json.Unmarshal(page.Items[0], &comment); err != nil {
		t.Fatalf("decode comment: %v", err)
	}
	if comment.Content != "great video" || comment.Owner.Handle != "guest" {
		t.Fatalf("unexpected comment: %+v", comment)
	}
}
