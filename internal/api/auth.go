package api

import (
	"context"
	"net/http"
	"strings"

	"tubeflow/internal/models"
)

type contextKey string

const userContextKey contextKey = "authenticatedUser"

const (
	accessCookieName  = "tubeflow_access"
	refreshCookieName = "tubeflow_refresh"
)

// ContextWithUser stores the authenticated user in the provided context.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user from context if present.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// ExtractToken pulls the access token from the Authorization header or the
// access cookie.
func ExtractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(accessCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// AuthenticateRequest validates the access token on the request and returns
// the user. Callers treat the error as advisory: routes that allow
// anonymous access ignore it.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.User, bool) {
	token := ExtractToken(r)
	if token == "" || h.Tokens == nil {
		return models.User{}, false
	}
	userID, err := h.Tokens.VerifyAccess(token)
	if err != nil {
		return models.User{}, false
	}
	user, exists := h.Store.GetUser(userID)
	if !exists {
		return models.User{}, false
	}
	return user, true
}

func (h *Handler) requireAuthenticatedUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	if user, ok := UserFromContext(r.Context()); ok {
		return user, true
	}
	if user, ok := h.AuthenticateRequest(r); ok {
		return user, true
	}
	writeFailure(w, http.StatusUnauthorized, "authentication required")
	return models.User{}, false
}

// actorID returns the authenticated user's ID or the empty string for
// anonymous requests.
func (h *Handler) actorID(r *http.Request) string {
	if user, ok := UserFromContext(r.Context()); ok {
		return user.ID
	}
	if user, ok := h.AuthenticateRequest(r); ok {
		return user.ID
	}
	return ""
}
