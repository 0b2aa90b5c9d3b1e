package auth

import (
	"net/http"
	"os"
	"time"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// CookieConfig controls the flags of the session cookies.
type CookieConfig struct {
	Secure bool
	Domain string
}

// CookieConfigFromEnv reads COOKIE_SECURE (default true) and COOKIE_DOMAIN.
func CookieConfigFromEnv() CookieConfig {
	v := os.Getenv("COOKIE_SECURE")
	return CookieConfig{
		Secure: v != "0" && v != "false",
		Domain: os.Getenv("COOKIE_DOMAIN"),
	}
}

func (c CookieConfig) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
