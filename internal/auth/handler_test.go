package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/identity"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/media"
)

type envelope struct {
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Success bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func newTestHandler(t *testing.T, f *fixture) *Handler {
	t.Helper()
	return NewHandler(f.svc, media.Stager{Dir: t.TempDir(), MaxBytes: 1 << 20}, CookieConfig{Secure: true}, zap.NewNop().Sugar())
}

func registerRequest(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, "bytes of "+name)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHandler_Register(t *testing.T) {
	f := newFixture(t)
	var staged []string
	f.svc.media = mediaFunc(func(_ context.Context, p string) (string, error) {
		_, err := os.Stat(p)
		require.NoError(t, err)
		staged = append(staged, p)
		return "https://cdn/file", nil
	})
	h := newTestHandler(t, f)

	rec := httptest.NewRecorder()
	h.Register(rec, registerRequest(t,
		map[string]string{"username": "alice", "fullname": "Alice", "email": "a@x.io", "password": "pw"},
		map[string]string{"avatar": "me.png", "coverImage": "cover.jpg"}))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "User created successfully!", env.Message)
	assert.NotContains(t, string(env.Data), "password")
	assert.NotContains(t, string(env.Data), "refresh")
	require.Len(t, staged, 2)
	for _, p := range staged {
		assert.NoFileExists(t, p)
	}
}

func TestHandler_Register_MissingAvatar(t *testing.T) {
	h := newTestHandler(t, newFixture(t))

	rec := httptest.NewRecorder()
	h.Register(rec, registerRequest(t,
		map[string]string{"username": "alice", "fullname": "Alice", "email": "a@x.io", "password": "pw"}, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Avatar is required", decodeEnvelope(t, rec).Message)
}

func TestHandler_LoginSetsCookies(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "pw")
	h := newTestHandler(t, f)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"alice","password":"pw"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	for _, name := range []string{AccessCookie, RefreshCookie} {
		c := cookieByName(rec, name)
		require.NotNil(t, c, name)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.NotEmpty(t, c.Value)
	}

	var data struct {
		User         map[string]any `json:"user"`
		AccessToken  string         `json:"accessToken"`
		RefreshToken string         `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, "alice", data.User["username"])
	assert.NotContains(t, data.User, "refreshToken")
	assert.Equal(t, cookieByName(rec, RefreshCookie).Value, data.RefreshToken)
}

func TestHandler_LoginFailures(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "pw")
	h := newTestHandler(t, f)

	cases := []struct {
		body string
		want int
	}{
		{`{"username":"alice","password":"bad"}`, http.StatusUnauthorized},
		{`{"email":"ghost@x.io","password":"pw"}`, http.StatusNotFound},
		{`{"password":"pw"}`, http.StatusBadRequest},
		{`not json`, http.StatusBadRequest},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(c.body)))
		assert.Equal(t, c.want, rec.Code, c.body)
		assert.Nil(t, cookieByName(rec, AccessCookie))
	}
}

func TestHandler_RefreshFromCookieAndBody(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "pw")
	h := newTestHandler(t, f)
	login, err := f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: login.RefreshToken})
	rec := httptest.NewRecorder()
	h.RefreshToken(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	next := cookieByName(rec, RefreshCookie)
	require.NotNil(t, next)

	body := `{"refreshToken":"` + next.Value + `"}`
	rec = httptest.NewRecorder()
	h.RefreshToken(rec, httptest.NewRequest(http.MethodPost, "/refresh-token", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.RefreshToken(rec, httptest.NewRequest(http.MethodPost, "/refresh-token", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "reused token")

	rec = httptest.NewRecorder()
	h.RefreshToken(rec, httptest.NewRequest(http.MethodPost, "/refresh-token", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_LogoutClearsCookies(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, "alice", "alice@example.com", "pw")
	h := newTestHandler(t, f)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req = req.WithContext(identity.WithProfile(req.Context(), p))
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c := cookieByName(rec, name)
		require.NotNil(t, c)
		assert.Empty(t, c.Value)
		assert.Less(t, c.MaxAge, 0)
	}
}

func TestHandler_ChangePassword(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, "alice", "alice@example.com", "pw")
	h := newTestHandler(t, f)

	req := httptest.NewRequest(http.MethodPost, "/change-password", strings.NewReader(`{"oldPassword":"bad","newPassword":"x"}`))
	rec := httptest.NewRecorder()
	h.ChangePassword(rec, req.WithContext(identity.WithProfile(req.Context(), p)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/change-password", strings.NewReader(`{"oldPassword":"pw","newPassword":"x"}`))
	rec = httptest.NewRecorder()
	h.ChangePassword(rec, req.WithContext(identity.WithProfile(req.Context(), p)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireUser(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, "alice", "alice@example.com", "pw")
	access, err := f.codec.IssueAccessToken(p.ID)
	require.NoError(t, err)

	var seen string
	gate := RequireUser(f.svc, zap.NewNop().Sugar())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		me, ok := identity.FromContext(r.Context())
		require.True(t, ok)
		seen = me.Username
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/current-user", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "alice", seen)

	req = httptest.NewRequest(http.MethodGet, "/current-user", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: access})
	rec = httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	for _, hdr := range []string{"", "Bearer", "Basic " + access, "Bearer not-a-jwt"} {
		req = httptest.NewRequest(http.MethodGet, "/current-user", nil)
		if hdr != "" {
			req.Header.Set("Authorization", hdr)
		}
		rec = httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, hdr)
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Empty(t, bearerToken("Token abc"))
	assert.Empty(t, bearerToken(""))
}
