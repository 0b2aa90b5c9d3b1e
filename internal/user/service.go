package user

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/user/repo"
)

// Store is the subset of the user repository the profile service needs.
type Store interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	UpdateProfile(ctx context.Context, id string, c userrepo.ProfileChanges) (*entity.User, error)
}

// MediaStore uploads a staged file and returns its public URL.
type MediaStore interface {
	Store(ctx context.Context, localPath string) (string, error)
}

// ProfileService mutates profile fields of an authenticated user.
type ProfileService struct {
	users  Store
	media  MediaStore
	logger *zap.SugaredLogger
}

func NewProfileService(users Store, media MediaStore, logger *zap.SugaredLogger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ProfileService{users: users, media: media, logger: logger}
}

// CurrentUser re-reads the user so the response reflects the stored state.
func (s *ProfileService) CurrentUser(ctx context.Context, id string) (*entity.Profile, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Sanitize(), nil
}

func (s *ProfileService) UpdateUsername(ctx context.Context, id, username string) (*entity.Profile, error) {
	if strings.TrimSpace(username) == "" {
		return nil, apperr.Validation("Username is required")
	}
	return s.update(ctx, id, userrepo.ProfileChanges{Username: &username})
}

func (s *ProfileService) UpdateFullname(ctx context.Context, id, fullname string) (*entity.Profile, error) {
	if strings.TrimSpace(fullname) == "" {
		return nil, apperr.Validation("Fullname is required")
	}
	return s.update(ctx, id, userrepo.ProfileChanges{Fullname: &fullname})
}

// UpdateAvatar stores the staged file and points the user at it.
// The previous avatar is left in storage.
func (s *ProfileService) UpdateAvatar(ctx context.Context, id, localPath string) (*entity.Profile, error) {
	if localPath == "" {
		return nil, apperr.Validation("Avatar file is missing")
	}
	url, err := s.media.Store(ctx, localPath)
	if err != nil {
		return nil, apperr.Upload("Error while uploading avatar", err)
	}
	return s.update(ctx, id, userrepo.ProfileChanges{AvatarURL: &url})
}

func (s *ProfileService) UpdateCoverImage(ctx context.Context, id, localPath string) (*entity.Profile, error) {
	if localPath == "" {
		return nil, apperr.Validation("Cover image file is missing")
	}
	url, err := s.media.Store(ctx, localPath)
	if err != nil {
		return nil, apperr.Upload("Error while uploading cover image", err)
	}
	return s.update(ctx, id, userrepo.ProfileChanges{CoverImageURL: &url})
}

// update writes only the changed column so concurrent writers to other
// columns (refresh token, password) are never overwritten.
func (s *ProfileService) update(ctx context.Context, id string, c userrepo.ProfileChanges) (*entity.Profile, error) {
	u, err := s.users.UpdateProfile(ctx, id, c)
	if err != nil {
		switch {
		case errors.Is(err, userrepo.ErrDuplicateKey):
			return nil, apperr.Conflict("Username already exists")
		case errors.Is(err, userrepo.ErrValidation):
			return nil, apperr.Validation("All fields are required!")
		case errors.Is(err, userrepo.ErrNotFound):
			return nil, apperr.NotFound("User does not exist")
		}
		return nil, apperr.Internal("Something went wrong while updating the User", err)
	}
	s.logger.Debugw("profile updated", "user_id", u.ID)
	return u.Sanitize(), nil
}

func (s *ProfileService) load(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, apperr.NotFound("User does not exist")
		}
		return nil, apperr.Internal("Something went wrong while loading the User", err)
	}
	return u, nil
}

// ConstantTimeCompare compares secrets without leaking their common prefix length.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
