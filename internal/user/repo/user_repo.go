package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/user/entity"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrDuplicateKey = errors.New("username or email already exists")
	ErrValidation   = errors.New("required field missing")
)

// pq error code for unique_violation.
const uniqueViolation = "23505"

// ProfileChanges names the profile columns to overwrite; nil fields are left as stored.
type ProfileChanges struct {
	Username      *string
	Fullname      *string
	AvatarURL     *string
	CoverImageURL *string
}

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

const selectUser = `SELECT id, username, email, fullname, password_hash, avatar_url,
		cover_image_url, refresh_token, created_at, updated_at
	FROM users`

// FindByID fetches a full user row.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.get(ctx, selectUser+` WHERE id = $1`, id)
}

// FindByUsernameOrEmail returns the first user matching either key.
// Pass the same identifier twice to look up a login name of unknown kind.
func (r *UserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error) {
	return r.get(ctx, selectUser+` WHERE username = $1 OR email = $2 LIMIT 1`,
		entity.NormalizeKey(username), entity.NormalizeKey(email))
}

func (r *UserRepo) get(ctx context.Context, q string, args ...any) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

// Create validates and inserts a new user. The caller supplies the id.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	u.Normalize()
	if f := u.MissingRequired(); f != "" || u.ID == "" {
		if f == "" {
			f = "id"
		}
		return fmt.Errorf("%w: %s", ErrValidation, f)
	}
	const q = `INSERT INTO users (id, username, email, fullname, password_hash, avatar_url, cover_image_url)
		VALUES (:id, :username, :email, :fullname, :password_hash, :avatar_url, :cover_image_url)
		RETURNING created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, u)
	if err != nil {
		return mapWriteErr(err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return mapWriteErr(err)
		}
		return errors.New("insert user: no row returned")
	}
	return rows.Scan(&u.CreatedAt, &u.UpdatedAt)
}

// UpdateProfile overwrites only the columns set in c and returns the stored row.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, c ProfileChanges) (*entity.User, error) {
	if c.Username != nil {
		v := entity.NormalizeKey(*c.Username)
		if v == "" {
			return nil, fmt.Errorf("%w: username", ErrValidation)
		}
		c.Username = &v
	}
	if c.Fullname != nil {
		v := strings.TrimSpace(*c.Fullname)
		if v == "" {
			return nil, fmt.Errorf("%w: fullname", ErrValidation)
		}
		c.Fullname = &v
	}
	if c.AvatarURL != nil && *c.AvatarURL == "" {
		return nil, fmt.Errorf("%w: avatar", ErrValidation)
	}
	const q = `UPDATE users SET
		username = COALESCE($2, username),
		fullname = COALESCE($3, fullname),
		avatar_url = COALESCE($4, avatar_url),
		cover_image_url = COALESCE($5, cover_image_url),
		updated_at = NOW()
	WHERE id = $1
	RETURNING id, username, email, fullname, password_hash, avatar_url,
		cover_image_url, refresh_token, created_at, updated_at`
	var u entity.User
	err := r.db.QueryRowxContext(ctx, q, id, c.Username, c.Fullname, c.AvatarURL, c.CoverImageURL).StructScan(&u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, mapWriteErr(err)
	}
	return &u, nil
}

// SetRefreshToken stores token as the user's only refresh token; nil revokes it.
func (r *UserRepo) SetRefreshToken(ctx context.Context, id string, token *string) error {
	const q = `UPDATE users SET refresh_token = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "set refresh token", q, id, token)
}

// UpdatePassword swaps the hash only if the stored one is still current.
// It reports false when the password changed since current was read.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, current, next string) (bool, error) {
	const q = `UPDATE users SET password_hash = $3, updated_at = NOW()
		WHERE id = $1 AND password_hash = $2`
	res, err := r.db.ExecContext(ctx, q, id, current, next)
	if err != nil {
		return false, fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update password: %w", err)
	}
	return n == 1, nil
}

func (r *UserRepo) execOne(ctx context.Context, op, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RotateRefreshToken replaces the stored refresh token only if it still
// equals presented. It reports false when another rotation or a logout won.
func (r *UserRepo) RotateRefreshToken(ctx context.Context, id, presented, next string) (bool, error) {
	const q = `UPDATE users SET refresh_token = $3, updated_at = NOW()
		WHERE id = $1 AND refresh_token = $2`
	res, err := r.db.ExecContext(ctx, q, id, presented, next)
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	return n == 1, nil
}

func mapWriteErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pqErr.Constraint)
	}
	return fmt.Errorf("write user: %w", err)
}
