// Package auth implements registration and the session lifecycle: login,
// logout, refresh-token rotation and password change.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/user/repo"
)

// UserStore is the credential store used by the session manager.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error)
	Create(ctx context.Context, u *entity.User) error
	SetRefreshToken(ctx context.Context, id string, token *string) error
	UpdatePassword(ctx context.Context, id, current, next string) (bool, error)
	RotateRefreshToken(ctx context.Context, id, presented, next string) (bool, error)
}

// IDGenerator produces new user ids.
type IDGenerator interface {
	Next() string
}

// Service orchestrates registration and session flows.
type Service struct {
	users  UserStore
	hasher user.PasswordHasher
	codec  *token.Codec
	media  user.MediaStore
	ids    IDGenerator
	logger *zap.SugaredLogger
}

func NewService(users UserStore, hasher user.PasswordHasher, codec *token.Codec, media user.MediaStore, ids IDGenerator, logger *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = user.BcryptHasher{Cost: user.DefaultBcryptCost}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{users: users, hasher: hasher, codec: codec, media: media, ids: ids, logger: logger}
}

type RegisterInput struct {
	Username   string
	Fullname   string
	Email      string
	Password   string
	AvatarPath string
	CoverPath  string
}

type LoginInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type LoginResult struct {
	User *entity.Profile `json:"user"`
	TokenPair
}

const (
	msgUnauthorized   = "Unauthorized request"
	msgInvalidAccess  = "Invalid access token"
	msgInvalidRefresh = "Invalid refresh token"
	msgRefreshUsed    = "Refresh token is expired or used"
)

// Register creates a user with uploaded avatar and optional cover image.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.Profile, error) {
	for _, f := range []string{in.Username, in.Password, in.Fullname, in.Email} {
		if strings.TrimSpace(f) == "" {
			return nil, apperr.Validation("All fields are required!")
		}
	}

	_, err := s.users.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	switch {
	case err == nil:
		return nil, apperr.Conflict("Username or E-mail already exists!")
	case !errors.Is(err, userrepo.ErrNotFound):
		return nil, apperr.Internal("Something went wrong while registering the User", err)
	}

	if in.AvatarPath == "" {
		return nil, apperr.Validation("Avatar is required")
	}
	avatarURL, err := s.media.Store(ctx, in.AvatarPath)
	if err != nil {
		return nil, apperr.Upload("Avatar upload failed", err)
	}
	var coverURL string
	if in.CoverPath != "" {
		if coverURL, err = s.media.Store(ctx, in.CoverPath); err != nil {
			s.logger.Warnw("cover image upload failed; continuing without cover", "err", err)
			coverURL = ""
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal("Something went wrong while registering the User", err)
	}
	u := &entity.User{
		ID:            s.ids.Next(),
		Username:      in.Username,
		Email:         in.Email,
		Fullname:      in.Fullname,
		PasswordHash:  hash,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
	}
	if err := s.users.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, userrepo.ErrDuplicateKey):
			return nil, apperr.Conflict("Username or E-mail already exists!")
		case errors.Is(err, userrepo.ErrValidation):
			return nil, apperr.Validation("All fields are required!")
		}
		return nil, apperr.Internal("Something went wrong while registering the User", err)
	}

	created, err := s.users.FindByID(ctx, u.ID)
	if err != nil {
		return nil, apperr.Internal("Something went wrong while registering the User", err)
	}
	s.logger.Infow("user registered", "user_id", created.ID)
	return created.Sanitize(), nil
}

// Login verifies credentials and starts a session by storing a fresh refresh token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	username, email := strings.TrimSpace(in.Username), strings.TrimSpace(in.Email)
	if username == "" && email == "" {
		return nil, apperr.Validation("username or email is required")
	}
	if username == "" {
		username = email
	}
	if email == "" {
		email = username
	}
	if in.Password == "" {
		return nil, apperr.Validation("Password is required")
	}

	u, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, apperr.NotFound("User does not exist")
		}
		return nil, apperr.Internal("Something went wrong while logging in", err)
	}
	if !s.hasher.Verify(u.PasswordHash, in.Password) {
		s.logger.Debugw("login rejected", "user_id", u.ID)
		return nil, apperr.Unauthorized("Invalid user credentials")
	}

	pair, err := s.issuePair(u.ID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, u.ID, &pair.RefreshToken); err != nil {
		return nil, apperr.Internal("Something went wrong while generating tokens", err)
	}
	u.RefreshToken = &pair.RefreshToken
	s.logger.Infow("user logged in", "user_id", u.ID)
	return &LoginResult{User: u.Sanitize(), TokenPair: *pair}, nil
}

// Logout clears the stored refresh token so no issued refresh token can be used again.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.users.SetRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return apperr.Unauthorized(msgInvalidAccess)
		}
		return apperr.Internal("Something went wrong while logging out", err)
	}
	s.logger.Infow("user logged out", "user_id", userID)
	return nil
}

// RefreshSession exchanges the current refresh token for a new pair.
// A refresh token is single use: the stored value is swapped atomically, so
// of two concurrent refreshes with the same token at most one succeeds.
func (s *Service) RefreshSession(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, apperr.Unauthorized(msgUnauthorized)
	}
	claims, err := s.codec.VerifyRefreshToken(presented)
	if err != nil {
		s.logger.Debugw("refresh token rejected", "err", err)
		return nil, apperr.Unauthorized(msgInvalidRefresh)
	}
	u, err := s.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, apperr.Unauthorized(msgInvalidRefresh)
		}
		return nil, apperr.Internal("Something went wrong while refreshing tokens", err)
	}
	if u.RefreshToken == nil || !user.ConstantTimeCompare(*u.RefreshToken, presented) {
		s.logger.Warnw("stale refresh token presented", "user_id", u.ID)
		return nil, apperr.Unauthorized(msgRefreshUsed)
	}

	pair, err := s.issuePair(u.ID)
	if err != nil {
		return nil, err
	}
	swapped, err := s.users.RotateRefreshToken(ctx, u.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, apperr.Internal("Something went wrong while refreshing tokens", err)
	}
	if !swapped {
		s.logger.Warnw("refresh token lost rotation race", "user_id", u.ID)
		return nil, apperr.Unauthorized(msgRefreshUsed)
	}
	return pair, nil
}

// ChangePassword replaces the password hash after checking the old password.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return apperr.Validation("Old and new password are required")
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return apperr.NotFound("User does not exist")
		}
		return apperr.Internal("Something went wrong while changing password", err)
	}
	if !s.hasher.Verify(u.PasswordHash, oldPassword) {
		return apperr.Unauthorized("Invalid old password")
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal("Something went wrong while changing password", err)
	}
	swapped, err := s.users.UpdatePassword(ctx, u.ID, u.PasswordHash, hash)
	if err != nil {
		return apperr.Internal("Something went wrong while changing password", err)
	}
	if !swapped {
		s.logger.Warnw("password changed concurrently", "user_id", u.ID)
		return apperr.Unauthorized("Invalid old password")
	}
	s.logger.Infow("password changed", "user_id", u.ID)
	return nil
}

// Authenticate resolves an access token to the sanitized user it was issued for.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*entity.Profile, error) {
	if accessToken == "" {
		return nil, apperr.Unauthorized(msgUnauthorized)
	}
	claims, err := s.codec.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, apperr.Unauthorized(msgInvalidAccess)
	}
	u, err := s.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, apperr.Unauthorized(msgInvalidAccess)
		}
		return nil, apperr.Internal("Something went wrong while authenticating", err)
	}
	return u.Sanitize(), nil
}

// AccessTTL and RefreshTTL drive cookie lifetimes.
func (s *Service) AccessTTL() time.Duration  { return s.codec.AccessTTL() }
func (s *Service) RefreshTTL() time.Duration { return s.codec.RefreshTTL() }

func (s *Service) issuePair(userID string) (*TokenPair, error) {
	access, err := s.codec.IssueAccessToken(userID)
	if err != nil {
		return nil, apperr.Internal("Something went wrong while generating tokens", err)
	}
	refresh, err := s.codec.IssueRefreshToken(userID)
	if err != nil {
		return nil, apperr.Internal("Something went wrong while generating tokens", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
