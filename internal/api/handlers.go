// Package api implements the HTTP handlers for the platform: account and
// session endpoints, video publishing and discovery, tweets, comments,
// playlists, likes, subscriptions, and the channel dashboard.
package api

import (
	"log/slog"

	"tubeflow/internal/auth"
	"tubeflow/internal/storage"
)

type Handler struct {
	Store  storage.Repository
	Tokens *auth.TokenManager
	Logger *slog.Logger
}

func NewHandler(store storage.Repository, tokens *auth.TokenManager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Store: store, Tokens: tokens, Logger: logger}
}
