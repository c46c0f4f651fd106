// Package storage implements the JSON-file document store backing the
// platform: entity CRUD, relationship toggles, and the aggregation queries
// built on the pipeline package.
package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/cases"

	"tubeflow/internal/apierr"
	"tubeflow/internal/assets"
	"tubeflow/internal/auth"
	"tubeflow/internal/models"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000

	minPasswordLength = 8
)

type dataset struct {
	Users         map[string]models.User         `json:"users"`
	Videos        map[string]models.Video        `json:"videos"`
	Tweets        map[string]models.Tweet        `json:"tweets"`
	Comments      map[string]models.Comment      `json:"comments"`
	Playlists     map[string]models.Playlist     `json:"playlists"`
	Subscriptions map[string]models.Subscription `json:"subscriptions"`
	Likes         map[string]models.Like         `json:"likes"`
}

type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
	assets          assets.Store
	now             func() time.Time
}

// Option mutates storage configuration.
type Option func(*Storage)

// WithAssetStore installs the media host used for uploads and deletions.
func WithAssetStore(store assets.Store) Option {
	return func(s *Storage) {
		s.assets = store
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		if now != nil {
			s.now = now
		}
	}
}

func newDataset() dataset {
	return dataset{
		Users:         make(map[string]models.User),
		Videos:        make(map[string]models.Video),
		Tweets:        make(map[string]models.Tweet),
		Comments:      make(map[string]models.Comment),
		Playlists:     make(map[string]models.Playlist),
		Subscriptions: make(map[string]models.Subscription),
		Likes:         make(map[string]models.Like),
	}
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Videos == nil {
		s.data.Videos = make(map[string]models.Video)
	}
	if s.data.Tweets == nil {
		s.data.Tweets = make(map[string]models.Tweet)
	}
	if s.data.Comments == nil {
		s.data.Comments = make(map[string]models.Comment)
	}
	if s.data.Playlists == nil {
		s.data.Playlists = make(map[string]models.Playlist)
	}
	if s.data.Subscriptions == nil {
		s.data.Subscriptions = make(map[string]models.Subscription)
	}
	if s.data.Likes == nil {
		s.data.Likes = make(map[string]models.Like)
	}
}

func NewStorage(path string, opts ...Option) (*Storage, error) {
	store := &Storage{
		filePath: path,
		assets:   assets.NoopStore{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.assets == nil {
		store.assets = assets.NoopStore{}
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()

	return nil
}

func (s *Storage) persist() error {
	return s.persistDataset(s.data)
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		if err := s.persistOverride(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

func cloneDataset(src dataset) dataset {
	clone := dataset{}

	if src.Users != nil {
		clone.Users = make(map[string]models.User, len(src.Users))
		for id, user := range src.Users {
			cloned := user
			if user.WatchHistory != nil {
				cloned.WatchHistory = append([]string(nil), user.WatchHistory...)
			}
			clone.Users[id] = cloned
		}
	}

	if src.Videos != nil {
		clone.Videos = make(map[string]models.Video, len(src.Videos))
		for id, video := range src.Videos {
			clone.Videos[id] = video
		}
	}

	if src.Tweets != nil {
		clone.Tweets = make(map[string]models.Tweet, len(src.Tweets))
		for id, tweet := range src.Tweets {
			clone.Tweets[id] = tweet
		}
	}

	if src.Comments != nil {
		clone.Comments = make(map[string]models.Comment, len(src.Comments))
		for id, comment := range src.Comments {
			clone.Comments[id] = comment
		}
	}

	if src.Playlists != nil {
		clone.Playlists = make(map[string]models.Playlist, len(src.Playlists))
		for id, playlist := range src.Playlists {
			cloned := playlist
			if playlist.VideoIDs != nil {
				cloned.VideoIDs = append([]string(nil), playlist.VideoIDs...)
			}
			clone.Playlists[id] = cloned
		}
	}

	if src.Subscriptions != nil {
		clone.Subscriptions = make(map[string]models.Subscription, len(src.Subscriptions))
		for id, subscription := range src.Subscriptions {
			clone.Subscriptions[id] = subscription
		}
	}

	if src.Likes != nil {
		clone.Likes = make(map[string]models.Like, len(src.Likes))
		for id, like := range src.Likes {
			clone.Likes[id] = like
		}
	}

	return clone
}

func newID() string {
	return uuid.NewString()
}

// Ping reports whether the backing file is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := os.Stat(filepath.Dir(s.filePath)); err != nil {
		return fmt.Errorf("store directory unavailable: %w", err)
	}
	return nil
}

// authorizeOwner enforces the owner-only mutation rule for stored entities.
func authorizeOwner(actorID, ownerID string) error {
	return auth.Authorize(actorID, ownerID, auth.ActionManage)
}

// caseFolder backs handle normalization and search matching with full
// Unicode case folding.
var caseFolder = cases.Fold()

// normalizeHandle lowercases a channel handle so lookups are
// case-insensitive.
func normalizeHandle(handle string) string {
	return caseFolder.String(strings.TrimSpace(handle))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, passwordHashSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(password), salt, passwordHashIterations, passwordHashKeyLength, sha256.New)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedKey := base64.RawStdEncoding.EncodeToString(derived)
	return fmt.Sprintf("pbkdf2$sha256$%d$%s$%s", passwordHashIterations, encodedSalt, encodedKey), nil
}

func verifyPassword(encodedHash, candidate string) error {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 5 {
		return apierr.Internal("verify password: invalid hash format")
	}
	if parts[0] != "pbkdf2" || parts[1] != "sha256" {
		return apierr.Internal("verify password: unsupported hash identifier")
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return apierr.Internal("verify password: invalid iteration count")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return apierr.Internal("verify password: decode salt: %v", err)
	}
	storedKey, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return apierr.Internal("verify password: decode hash: %v", err)
	}
	derived := pbkdf2.Key([]byte(candidate), salt, iterations, len(storedKey), sha256.New)
	if len(derived) != len(storedKey) || subtle.ConstantTimeCompare(derived, storedKey) != 1 {
		return apierr.Auth("invalid credentials")
	}
	return nil
}
