// Package auth implements the identity collaborator: pbkdf2 credential
// hashing lives next to the store; this file issues and verifies the two
// bearer credentials (a short-lived signed access token and a longer-lived
// opaque refresh token persisted server-side).
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tubeflow/internal/apierr"
)

const (
	defaultAccessTTL   = 15 * time.Minute
	defaultRefreshTTL  = 7 * 24 * time.Hour
	refreshTokenLength = 32
)

// RefreshRecord captures a refresh-token row retrieved from the backing store.
type RefreshRecord struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// RefreshStore defines the persistence contract for refresh tokens.
type RefreshStore interface {
	Save(token, userID string, expiresAt time.Time) error
	Get(token string) (RefreshRecord, bool, error)
	Delete(token string) error
	DeleteForUser(userID string) error
	PurgeExpired(now time.Time) error
}

// TokenPair is the result of a login or refresh exchange.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// Option configures a TokenManager.
type Option func(*TokenManager)

// WithStore injects a custom RefreshStore implementation.
func WithStore(store RefreshStore) Option {
	return func(m *TokenManager) { m.store = store }
}

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.refreshTTL = ttl
		}
	}
}

// TokenManager signs access tokens with a server-held secret and rotates
// refresh tokens through a backing store.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RefreshStore
	now        func() time.Time
}

// NewTokenManager constructs a manager keyed by secret. The manager defaults
// to a 15-minute access TTL, a 7-day refresh TTL, and an in-memory refresh
// store for local development when no store is supplied.
func NewTokenManager(secret string, opts ...Option) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	manager := &TokenManager{
		secret:     []byte(secret),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(manager)
		}
	}
	if manager.store == nil {
		manager.store = NewMemoryRefreshStore()
	}
	return manager, nil
}

// Issue creates a fresh access/refresh pair for the user. Any previously
// stored refresh token for the user is replaced.
func (m *TokenManager) Issue(userID string) (TokenPair, error) {
	if userID == "" {
		return TokenPair{}, apierr.Auth("userID is required")
	}
	now := m.now().UTC()
	accessExpires := now.Add(m.accessTTL)
	access := m.signAccess(userID, accessExpires)

	refresh, err := generateToken(refreshTokenLength)
	if err != nil {
		return TokenPair{}, apierr.Wrap(apierr.KindInternal, err, "generate refresh token")
	}
	refreshExpires := now.Add(m.refreshTTL)
	if err := m.store.DeleteForUser(userID); err != nil {
		return TokenPair{}, apierr.Wrap(apierr.KindInternal, err, "rotate refresh token")
	}
	if err := m.store.Save(refresh, userID, refreshExpires); err != nil {
		return TokenPair{}, apierr.Wrap(apierr.KindInternal, err, "persist refresh token")
	}
	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

// VerifyAccess checks the access token signature and expiry and returns the
// embedded user identifier.
func (m *TokenManager) VerifyAccess(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return "", apierr.Auth("malformed access token")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", apierr.Auth("malformed access token")
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", apierr.Auth("malformed access token")
	}
	expected := m.sign(payload)
	if subtle.ConstantTimeCompare(signature, expected) != 1 {
		return "", apierr.Auth("invalid access token signature")
	}
	fields := strings.SplitN(string(payload), "|", 2)
	if len(fields) != 2 {
		return "", apierr.Auth("malformed access token payload")
	}
	expiresUnix, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", apierr.Auth("malformed access token payload")
	}
	if m.now().UTC().After(time.Unix(expiresUnix, 0)) {
		return "", apierr.Auth("access token expired")
	}
	return fields[0], nil
}

// Refresh exchanges a valid refresh token for a new pair. The presented
// token is invalidated regardless of which replica serves the request.
func (m *TokenManager) Refresh(refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, apierr.Auth("refresh token is required")
	}
	record, ok, err := m.store.Get(refreshToken)
	if err != nil {
		return TokenPair{}, apierr.Wrap(apierr.KindInternal, err, "load refresh token")
	}
	if !ok {
		return TokenPair{}, apierr.Auth("refresh token is expired or has been used")
	}
	if m.now().UTC().After(record.ExpiresAt) {
		_ = m.store.Delete(refreshToken)
		return TokenPair{}, apierr.Auth("refresh token expired")
	}
	if err := m.store.Delete(refreshToken); err != nil {
		return TokenPair{}, apierr.Wrap(apierr.KindInternal, err, "rotate refresh token")
	}
	return m.Issue(record.UserID)
}

// Revoke deletes the stored refresh token, ending the session.
func (m *TokenManager) Revoke(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := m.store.Delete(refreshToken); err != nil {
		return apierr.Wrap(apierr.KindInternal, err, "revoke refresh token")
	}
	return nil
}

// RevokeUser deletes every refresh token issued to the user.
func (m *TokenManager) RevokeUser(userID string) error {
	if userID == "" {
		return nil
	}
	if err := m.store.DeleteForUser(userID); err != nil {
		return apierr.Wrap(apierr.KindInternal, err, "revoke user tokens")
	}
	return nil
}

// PurgeExpired removes expired refresh tokens from the backing store.
func (m *TokenManager) PurgeExpired() error {
	return m.store.PurgeExpired(m.now().UTC())
}

func (m *TokenManager) signAccess(userID string, expiresAt time.Time) string {
	payload := fmt.Sprintf("%s|%d", userID, expiresAt.Unix())
	signature := m.sign([]byte(payload))
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + base64.RawURLEncoding.EncodeToString(signature)
}

func (m *TokenManager) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

func generateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
