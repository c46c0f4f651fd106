package api

import (
	"net/http"
	"strings"
	"time"

	"tubeflow/internal/apierr"
	"tubeflow/internal/auth"
	"tubeflow/internal/models"
	"tubeflow/internal/storage"
)

// sessionPayload is the data half of login, register, and refresh replies.
type sessionPayload struct {
	User   models.PublicUser `json:"user"`
	Tokens auth.TokenPair    `json:"tokens"`
}

func setTokenCookies(w http.ResponseWriter, r *http.Request, pair auth.TokenPair) {
	secure := isSecureRequest(r)
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.AccessExpiresAt.UTC(),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/api/auth",
		Expires:  pair.RefreshExpiresAt.UTC(),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearTokenCookies(w http.ResponseWriter, r *http.Request) {
	secure := isSecureRequest(r)
	expired := time.Unix(0, 0).UTC()
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    "",
		Path:     "/",
		Expires:  expired,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/auth",
		Expires:  expired,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func isSecureRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		for _, p := range strings.Split(proto, ",") {
			if strings.EqualFold(strings.TrimSpace(p), "https") {
				return true
			}
		}
	}
	return false
}

// Register handles POST /api/auth/register. The body is multipart: account
// fields plus a required avatar file and optional cover image.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if err := parseMultipart(r); err != nil {
		writeError(w, err)
		return
	}

	avatarPath, avatarCleanup, err := stageUpload(r, "avatar", true)
	if err != nil {
		writeError(w, err)
		return
	}
	defer avatarCleanup()

	coverPath, coverCleanup, err := stageUpload(r, "coverImage", false)
	if err != nil {
		writeError(w, err)
		return
	}
	defer coverCleanup()

	user, err := h.Store.Register(r.Context(), storage.RegisterParams{
		Handle:         r.FormValue("handle"),
		DisplayName:    r.FormValue("displayName"),
		Email:          r.FormValue("email"),
		Password:       r.FormValue("password"),
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	pair, err := h.Tokens.Issue(user.ID)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.KindInternal, err, "issue tokens"))
		return
	}
	setTokenCookies(w, r, pair)
	writeData(w, http.StatusCreated, sessionPayload{User: user.Public(), Tokens: pair}, "account created")
}

// Login handles POST /api/auth/login with a handle-or-email identifier.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var payload struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.Store.Authenticate(payload.Identifier, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	pair, err := h.Tokens.Issue(user.ID)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.KindInternal, err, "issue tokens"))
		return
	}
	setTokenCookies(w, r, pair)
	writeData(w, http.StatusOK, sessionPayload{User: user.Public(), Tokens: pair}, "logged in")
}

// Refresh handles POST /api/auth/refresh. The refresh token comes from the
// JSON body or the refresh cookie; a successful exchange rotates it.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	token := ""
	var payload struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSON(r, &payload); err == nil {
		token = strings.TrimSpace(payload.RefreshToken)
	}
	if token == "" {
		if cookie, err := r.Cookie(refreshCookieName); err == nil {
			token = strings.TrimSpace(cookie.Value)
		}
	}
	if token == "" {
		writeError(w, apierr.Auth("refresh token is required"))
		return
	}

	pair, err := h.Tokens.Refresh(token)
	if err != nil {
		writeError(w, err)
		return
	}

	userID, err := h.Tokens.VerifyAccess(pair.AccessToken)
	if err != nil {
		writeError(w, apierr.Wrap(apierr.KindInternal, err, "verify issued token"))
		return
	}
	user, ok := h.Store.GetUser(userID)
	if !ok {
		writeError(w, apierr.Auth("account no longer exists"))
		return
	}

	setTokenCookies(w, r, pair)
	writeData(w, http.StatusOK, sessionPayload{User: user.Public(), Tokens: pair}, "session refreshed")
}

// Logout handles POST /api/auth/logout: it revokes every refresh token for
// the authenticated user and clears the session cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if err := h.Tokens.RevokeUser(user.ID); err != nil {
		writeError(w, apierr.Wrap(apierr.KindInternal, err, "revoke tokens"))
		return
	}
	clearTokenCookies(w, r)
	writeData(w, http.StatusOK, nil, "logged out")
}
