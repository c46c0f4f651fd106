// Command seed-account creates or resets an account in the JSON datastore.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"tubeflow/internal/assets"
	"tubeflow/internal/models"
	"tubeflow/internal/storage"
)

func main() {
	var (
		jsonPath    string
		mediaRoot   string
		handle      string
		displayName string
		email       string
		password    string
		avatarPath  string
	)

	flag.StringVar(&jsonPath, "json", "data/store.json", "Path to the JSON datastore")
	flag.StringVar(&mediaRoot, "media-root", "data/media", "Directory holding uploaded media")
	flag.StringVar(&handle, "handle", "", "Handle for the account")
	flag.StringVar(&displayName, "name", "", "Display name for the account")
	flag.StringVar(&email, "email", "", "Email address for the account")
	flag.StringVar(&password, "password", "", "Password for the account")
	flag.StringVar(&avatarPath, "avatar", "", "Path to an avatar image, required when creating")
	flag.Parse()

	if strings.TrimSpace(handle) == "" && strings.TrimSpace(email) == "" {
		fatalf("either --handle or --email must be provided")
	}
	if len(password) < 8 {
		fatalf("--password must be at least 8 characters")
	}

	store, err := openStore(jsonPath, mediaRoot)
	if err != nil {
		fatalf("open datastore: %v", err)
	}

	user, created, err := seedAccount(store, seedParams{
		Handle:      handle,
		DisplayName: displayName,
		Email:       email,
		Password:    password,
		AvatarPath:  avatarPath,
	})
	if err != nil {
		fatalf("seed account: %v", err)
	}

	state := "updated"
	if created {
		state = "created"
	}
	fmt.Printf("Account @%s (%s) %s successfully.\n", user.Handle, user.Email, state)
	fmt.Println("Remember to rotate this password after the first login.")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

type seedParams struct {
	Handle      string
	DisplayName string
	Email       string
	Password    string
	AvatarPath  string
}

type accountStore interface {
	Register(ctx context.Context, params storage.RegisterParams) (models.User, error)
	FindUserByHandle(handle string) (models.User, bool)
	FindUserByEmail(email string) (models.User, bool)
	ResetPassword(userID, newPassword string) error
	GetUser(id string) (models.User, bool)
}

func openStore(jsonPath, mediaRoot string) (*storage.Storage, error) {
	media, err := assets.NewLocalStore(mediaRoot, "/media")
	if err != nil {
		return nil, err
	}
	return storage.NewStorage(jsonPath, storage.WithAssetStore(media))
}

// seedAccount creates the account when no user matches the handle or email,
// otherwise it resets the existing account's password.
func seedAccount(store accountStore, params seedParams) (models.User, bool, error) {
	if existing, ok := findExisting(store, params); ok {
		if err := store.ResetPassword(existing.ID, params.Password); err != nil {
			return models.User{}, false, err
		}
		updated, _ := store.GetUser(existing.ID)
		return updated, false, nil
	}

	user, err := store.Register(context.Background(), storage.RegisterParams{
		Handle:      params.Handle,
		DisplayName: firstNonEmpty(params.DisplayName, params.Handle),
		Email:       params.Email,
		Password:    params.Password,
		AvatarPath:  params.AvatarPath,
	})
	if err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}

func findExisting(store accountStore, params seedParams) (models.User, bool) {
	if handle := strings.TrimSpace(params.Handle); handle != "" {
		if user, ok := store.FindUserByHandle(handle); ok {
			return user, true
		}
	}
	if email := strings.TrimSpace(params.Email); email != "" {
		if user, ok := store.FindUserByEmail(email); ok {
			return user, true
		}
	}
	return models.User{}, false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
