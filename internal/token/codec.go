// Package token signs and verifies the access and refresh JWTs.
package token

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/segmentio/ksuid"
)

var (
	ErrSigning      = errors.New("token signing failed")
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

type Config struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// ConfigFromEnv reads ACCESS_TOKEN_* and REFRESH_TOKEN_* variables.
func ConfigFromEnv() Config {
	return Config{
		AccessSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		AccessTTL:     durationFromEnv("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
		RefreshSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
		RefreshTTL:    durationFromEnv("REFRESH_TOKEN_EXPIRY", 10*24*time.Hour),
	}
}

// Validate rejects configurations that would let one secret forge the other kind.
func (c Config) Validate() error {
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return fmt.Errorf("%w: access and refresh secrets are required", ErrSigning)
	}
	if c.AccessSecret == c.RefreshSecret {
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrSigning)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("%w: token expiry must be positive", ErrSigning)
	}
	return nil
}

// ParseDuration accepts Go durations plus a day suffix ("10d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Claims is the payload of both token kinds.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"kind"`
}

// UserID returns the subject the token was issued for.
func (c *Claims) UserID() string { return c.Subject }

// Codec issues and verifies tokens with the configured secrets.
type Codec struct {
	cfg Config
	now func() time.Time
}

func NewCodec(cfg Config) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Codec{cfg: cfg, now: time.Now}, nil
}

func (c *Codec) AccessTTL() time.Duration  { return c.cfg.AccessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

func (c *Codec) IssueAccessToken(userID string) (string, error) {
	return c.issue(userID, KindAccess, []byte(c.cfg.AccessSecret), c.cfg.AccessTTL)
}

func (c *Codec) IssueRefreshToken(userID string) (string, error) {
	return c.issue(userID, KindRefresh, []byte(c.cfg.RefreshSecret), c.cfg.RefreshTTL)
}

func (c *Codec) VerifyAccessToken(tok string) (*Claims, error) {
	return c.verifyKind(tok, []byte(c.cfg.AccessSecret), KindAccess)
}

func (c *Codec) VerifyRefreshToken(tok string) (*Claims, error) {
	return c.verifyKind(tok, []byte(c.cfg.RefreshSecret), KindRefresh)
}

func (c *Codec) issue(userID string, kind Kind, secret []byte, ttl time.Duration) (string, error) {
	if userID == "" || len(secret) == 0 {
		return "", ErrSigning
	}
	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        ksuid.New().String(),
		},
		Kind: kind,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

func (c *Codec) verifyKind(tok string, secret []byte, kind Kind) (*Claims, error) {
	claims, err := verify(tok, secret, c.now)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Verify checks signature and expiry of tok against secret.
func Verify(tok string, secret []byte) (*Claims, error) {
	return verify(tok, secret, time.Now)
}

func verify(tok string, secret []byte, now func() time.Time) (*Claims, error) {
	if tok == "" {
		return nil, ErrTokenInvalid
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
