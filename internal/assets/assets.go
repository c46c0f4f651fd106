// Package assets defines the binary asset store collaborator: the remote
// media host that accepts uploaded files and hands back playback URLs and
// provider-assigned public IDs.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Kind distinguishes provider-side asset classes for deletion.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Asset is the provider's response to a successful upload.
type Asset struct {
	URL             string  `json:"url"`
	PublicID        string  `json:"publicId"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
}

// Store is the upload/delete contract the core consumes. Failures surface
// as errors the caller wraps into internal errors; a silent success is
// never reported for a failed operation.
type Store interface {
	Upload(ctx context.Context, localPath string) (Asset, error)
	Delete(ctx context.Context, publicID string, kind Kind) error
}

// LocalStore keeps assets under a media root on the local filesystem and
// serves them from a base URL. It stands in for the remote media host in
// development and tests.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates the media root if needed and returns a store
// serving files from baseURL.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("media root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload copies the file at localPath into the media root under a fresh
// public ID and returns its reference.
func (s *LocalStore) Upload(ctx context.Context, localPath string) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}
	if strings.TrimSpace(localPath) == "" {
		return Asset{}, fmt.Errorf("local path is required")
	}
	source, err := os.Open(localPath)
	if err != nil {
		return Asset{}, fmt.Errorf("open upload source: %w", err)
	}
	defer source.Close()

	publicID := uuid.NewString()
	if ext := filepath.Ext(localPath); ext != "" {
		publicID += ext
	}
	destPath := filepath.Join(s.root, publicID)
	dest, err := os.Create(destPath)
	if err != nil {
		return Asset{}, fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		_ = os.Remove(destPath)
		return Asset{}, fmt.Errorf("copy media file: %w", err)
	}
	if err := dest.Close(); err != nil {
		_ = os.Remove(destPath)
		return Asset{}, fmt.Errorf("close media file: %w", err)
	}
	return Asset{
		URL:      s.baseURL + "/" + publicID,
		PublicID: publicID,
	}, nil
}

// Delete removes the asset for publicID. Deleting an unknown ID is an
// error: the caller relies on delete-before-record-removal ordering, so a
// missing asset means the sequence already ran.
func (s *LocalStore) Delete(ctx context.Context, publicID string, kind Kind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(publicID) == "" {
		return fmt.Errorf("public id is required")
	}
	// Reject path escapes; public IDs are always flat names.
	if filepath.Base(publicID) != publicID {
		return fmt.Errorf("invalid public id %q", publicID)
	}
	path := filepath.Join(s.root, publicID)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("asset %s not found", publicID)
		}
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}

// NoopStore accepts every upload and delete without touching disk; it keeps
// handler tests independent of the filesystem.
type NoopStore struct{}

func (NoopStore) Upload(_ context.Context, localPath string) (Asset, error) {
	if strings.TrimSpace(localPath) == "" {
		return Asset{}, fmt.Errorf("local path is required")
	}
	id := uuid.NewString()
	return Asset{URL: "noop://" + id, PublicID: id}, nil
}

func (NoopStore) Delete(context.Context, string, Kind) error {
	return nil
}
