package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/identity"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/response"
)

// RequireUser is the authentication gate. It reads the access token from the
// accessToken cookie or an Authorization bearer header and attaches the
// resolved user to the request context.
func RequireUser(svc *Service, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := svc.Authenticate(r.Context(), accessTokenFrom(r))
			if err != nil {
				response.Error(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithProfile(r.Context(), p)))
		})
	}
}

func accessTokenFrom(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(h string) string {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}
