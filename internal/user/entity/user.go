package entity

import (
	"strings"
	"time"
)

// User represents an account row in the `users` table.
// PasswordHash and RefreshToken never leave the service; use Sanitize for output.
type User struct {
	ID            string    `db:"id"`
	Username      string    `db:"username"`
	Email         string    `db:"email"`
	Fullname      string    `db:"fullname"`
	PasswordHash  string    `db:"password_hash"`
	AvatarURL     string    `db:"avatar_url"`
	CoverImageURL string    `db:"cover_image_url"`
	RefreshToken  *string   `db:"refresh_token"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Profile is the sanitized projection returned to clients.
type Profile struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Fullname   string    `json:"fullname"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (u *User) Sanitize() *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Fullname:   u.Fullname,
		Avatar:     u.AvatarURL,
		CoverImage: u.CoverImageURL,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// Normalize trims every text field and lowercases the unique keys.
func (u *User) Normalize() {
	u.Username = NormalizeKey(u.Username)
	u.Email = NormalizeKey(u.Email)
	u.Fullname = strings.TrimSpace(u.Fullname)
}

// NormalizeKey is applied to usernames and emails on every write and lookup.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MissingRequired returns the first blank required field, or "".
func (u *User) MissingRequired() string {
	switch {
	case strings.TrimSpace(u.Username) == "":
		return "username"
	case strings.TrimSpace(u.Email) == "":
		return "email"
	case strings.TrimSpace(u.Fullname) == "":
		return "fullname"
	case u.PasswordHash == "":
		return "password"
	case strings.TrimSpace(u.AvatarURL) == "":
		return "avatar"
	}
	return ""
}
