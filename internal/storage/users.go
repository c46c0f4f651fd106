package storage

import (
	"context"
	"strings"

	"tubeflow/internal/apierr"
	"tubeflow/internal/assets"
	"tubeflow/internal/models"
)

// RegisterParams captures the attributes supplied when creating an account.
// AvatarPath is required; CoverImagePath is optional. Both are local paths
// handed to the asset store.
type RegisterParams struct {
	Handle         string
	DisplayName    string
	Email          string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// Register creates an account with a unique handle and email. The avatar
// (and optional cover image) is uploaded before the record is written; a
// failed record write removes the uploaded assets again.
func (s *Storage) Register(ctx context.Context, params RegisterParams) (models.User, error) {
	handle := normalizeHandle(params.Handle)
	if handle == "" {
		return models.User{}, apierr.Validation("handle is required")
	}
	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		return models.User{}, apierr.Validation("displayName is required")
	}
	email := strings.TrimSpace(strings.ToLower(params.Email))
	if email == "" {
		return models.User{}, apierr.Validation("email is required")
	}
	if len(params.Password) < minPasswordLength {
		return models.User{}, apierr.Validation("password must be at least %d characters", minPasswordLength)
	}
	if strings.TrimSpace(params.AvatarPath) == "" {
		return models.User{}, apierr.Validation("avatar file is required")
	}

	passwordHash, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, apierr.Wrap(apierr.KindInternal, err, "hash password")
	}

	avatar, err := s.assets.Upload(ctx, params.AvatarPath)
	if err != nil {
		return models.User{}, apierr.Wrap(apierr.KindInternal, err, "upload avatar")
	}
	var cover models.MediaRef
	if strings.TrimSpace(params.CoverImagePath) != "" {
		uploaded, uploadErr := s.assets.Upload(ctx, params.CoverImagePath)
		if uploadErr != nil {
			_ = s.assets.Delete(ctx, avatar.PublicID, assets.KindImage)
			return models.User{}, apierr.Wrap(apierr.KindInternal, uploadErr, "upload cover image")
		}
		cover = models.MediaRef{URL: uploaded.URL, PublicID: uploaded.PublicID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	failUploads := func() {
		_ = s.assets.Delete(ctx, avatar.PublicID, assets.KindImage)
		if cover.PublicID != "" {
			_ = s.assets.Delete(ctx, cover.PublicID, assets.KindImage)
		}
	}

	for _, user := range s.data.Users {
		if user.Handle == handle {
			failUploads()
			return models.User{}, apierr.Validation("handle %s already in use", handle)
		}
		if user.Email == email {
			failUploads()
			return models.User{}, apierr.Validation("email %s already in use", email)
		}
	}

	now := s.now()
	user := models.User{
		ID:           newID(),
		Handle:       handle,
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: passwordHash,
		Avatar:       models.MediaRef{URL: avatar.URL, PublicID: avatar.PublicID},
		CoverImage:   cover,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.data.Users[user.ID] = user
	if err := s.persist(); err != nil {
		delete(s.data.Users, user.ID)
		failUploads()
		return models.User{}, apierr.Wrap(apierr.KindInternal, err, "persist user")
	}

	return user, nil
}

// Authenticate verifies credentials against a handle or email identifier.
func (s *Storage) Authenticate(identifier, password string) (models.User, error) {
	if password == "" {
		return models.User{}, apierr.Validation("password is required")
	}
	user, ok := s.findUserByIdentifier(identifier)
	if !ok {
		return models.User{}, apierr.Auth("invalid credentials")
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *Storage) findUserByIdentifier(identifier string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	handle := normalizeHandle(identifier)
	email := strings.TrimSpace(strings.ToLower(identifier))
	for _, user := range s.data.Users {
		if user.Handle == handle || user.Email == email {
			return user, true
		}
	}
	return models.User{}, false
}

func (s *Storage) GetUser(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	return user, ok
}

// FindUserByHandle looks up a user by their case-folded handle.
func (s *Storage) FindUserByHandle(handle string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	normalized := normalizeHandle(handle)
	for _, user := range s.data.Users {
		if user.Handle == normalized {
			return user, true
		}
	}
	return models.User{}, false
}

// FindUserByEmail looks up a user by their normalized email address.
func (s *Storage) FindUserByEmail(email string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	normalized := strings.TrimSpace(strings.ToLower(email))
	for _, user := range s.data.Users {
		if user.Email == normalized {
			return user, true
		}
	}
	return models.User{}, false
}

// AccountUpdate represents the mutable account profile fields.
type AccountUpdate struct {
	DisplayName *string
	Email       *string
}

// UpdateAccount mutates account metadata while enforcing email uniqueness.
func (s *Storage) UpdateAccount(userID string, update AccountUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[userID]
	if !ok {
		return models.User{}, apierr.NotFound("user %s not found", userID)
	}

	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" {
			return models.User{}, apierr.Validation("displayName cannot be empty")
		}
		user.DisplayName = name
	}

	if update.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*update.Email))
		if email == "" {
			return models.User{}, apierr.Validation("email cannot be empty")
		}
		for existingID, existing := range updatedData.Users {
			if existingID == user.ID {
				continue
			}
			if existing.Email == email {
				return models.User{}, apierr.Validation("email %s already in use", email)
			}
		}
		user.Email = email
	}

	user.UpdatedAt = s.now()
	updatedData.Users[userID] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, apierr.Wrap(apierr.KindInternal, err, "persist user")
	}

	s.data = updatedData

	return user, nil
}

// ChangePassword replaces the stored hash after verifying the old password.
func (s *Storage) ChangePassword(userID, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apierr.Validation("password must be at least %d characters", minPasswordLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[userID]
	if !ok {
		return apierr.NotFound("user %s not found", userID)
	}
	if err := verifyPassword(user.PasswordHash, oldPassword); err != nil {
		return err
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, err, "hash password")
	}

	user.PasswordHash = hashed
	user.UpdatedAt = s.now()
	updatedData.Users[userID] = user

	if err := s.persistDataset(updatedData); err != nil {
		return apierr.Wrap(apierr.KindInternal, err, "persist user")
	}

	s.data = updatedData

	return nil
}

// ResetPassword replaces the stored hash without checking the old password.
// Intended for operator tooling, not request handlers.
func (s *Storage) ResetPassword(userID, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apierr.Validation("password must be at least %d characters", minPasswordLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[userID]
	if !ok {
		return apierr.NotFound("user %s not found", userID)
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, err, "hash password")
	}

	user.PasswordHash = hashed
	user.UpdatedAt = s.now()
	updatedData.Users[userID] = user

	if err := s.persistDataset(updatedData); err != nil {
		return apierr.Wrap(apierr.KindInternal, err, "persist user")
	}

	s.data = updatedData

	return nil
}

// UpdateAvatar uploads a replacement avatar, swaps the record, then removes
// the previous asset. The old asset outlives a failed record write.
func (s *Storage) UpdateAvatar(ctx context.Context, userID, localPath string) (models.User, error) {
	return s.replaceUserImage(ctx, userID, localPath, "avatar",
		func(u models.User) models.MediaRef { return u.Avatar },
		func(u *models.User, ref models.MediaRef) { u.Avatar = ref },
	)
}

// UpdateCoverImage uploads a replacement cover image with the same ordering
// guarantees as UpdateAvatar.
func (s *Storage) UpdateCoverImage(ctx context.Context, userID, localPath string) (models.User, error) {
	return s.replaceUserImage(ctx, userID, localPath, "cover image",
		func(u models.User) models.MediaRef { return u.CoverImage },
		func(u *models.User, ref models.MediaRef) { u.CoverImage = ref },
	)
}

func (s *Storage) replaceUserImage(ctx context.Context, userID, localPath, label string, get func(models.User) models.MediaRef, set func(*models.User, models.MediaRef)) (models.User, error) {
	if strings.TrimSpace(localPath) == "" {
		return models.User{}, apierr.Validation("%s file is required", label)
	}

	uploaded, err := s.assets.Upload(ctx, localPath)
	if err != nil {
		return models.User{}, apierr.Wrap(apierr.KindInternal, err, "upload %s", label)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[userID]
	if !ok {
		_ = s.assets.Delete(ctx, uploaded.PublicID, assets.KindImage)
		return models.User{}, apierr.NotFound("user %s not found", userID)
	}

	previous := get(user)
	set(&user, models.MediaRef{URL: uploaded.URL, PublicID: uploaded.PublicID})
	user.UpdatedAt = s.now()
	updatedData.Users[userID] = user

	if err := s.persistDataset(updatedData); err != nil {
		_ = s.assets.Delete(ctx, uploaded.PublicID, assets.KindImage)
		return models.User{}, apierr.Wrap(apierr.KindInternal, err, "persist user")
	}

	s.data = updatedData

	if !previous.IsZero() && previous.PublicID != "" {
		_ = s.assets.Delete(ctx, previous.PublicID, assets.KindImage)
	}

	return user, nil
}
