package auth

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/identity"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/media"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/response"
)

// Handler exposes the registration and session endpoints.
type Handler struct {
	svc     *Service
	stager  media.Stager
	cookies CookieConfig
	logger  *zap.SugaredLogger
}

func NewHandler(svc *Service, stager media.Stager, cookies CookieConfig, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, stager: stager, cookies: cookies, logger: logger}
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Register accepts multipart/form-data with username, fullname, email,
// password, an avatar file and an optional coverImage file.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	h.stager.LimitBody(w, r, 2)
	avatar, err := h.stager.StageFromRequest(r, "avatar")
	defer media.Cleanup(avatar)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		response.Error(w, h.logger, media.StageError(err))
		return
	}
	cover, err := h.stager.StageFromRequest(r, "coverImage")
	defer media.Cleanup(cover)
	if err != nil {
		response.Error(w, h.logger, media.StageError(err))
		return
	}

	in := RegisterInput{
		Username:   r.FormValue("username"),
		Fullname:   r.FormValue("fullname"),
		Email:      r.FormValue("email"),
		Password:   r.FormValue("password"),
		AvatarPath: avatar,
		CoverPath:  cover,
	}
	h.logger.Debugw("register request", "username", in.Username, "email", in.Email,
		"avatar", avatar != "", "cover", cover != "")

	p, err := h.svc.Register(r.Context(), in)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusCreated, p, "User created successfully!")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		response.Error(w, h.logger, apperr.Validation("invalid payload"))
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	h.cookies.set(w, AccessCookie, res.AccessToken, h.svc.AccessTTL())
	h.cookies.set(w, RefreshCookie, res.RefreshToken, h.svc.RefreshTTL())
	response.JSON(w, http.StatusOK, res, "User logged in successfully")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	me, ok := identity.FromContext(r.Context())
	if !ok {
		response.Error(w, h.logger, apperr.Unauthorized(msgUnauthorized))
		return
	}
	if err := h.svc.Logout(r.Context(), me.ID); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	h.cookies.clear(w, AccessCookie)
	h.cookies.clear(w, RefreshCookie)
	response.JSON(w, http.StatusOK, struct{}{}, "User logged out")
}

// RefreshToken reads the refresh token from its cookie, falling back to the JSON body.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var presented string
	if c, err := r.Cookie(RefreshCookie); err == nil {
		presented = c.Value
	}
	if presented == "" {
		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			h.logger.Debugw("invalid refresh payload", "err", err)
		}
		presented = req.RefreshToken
	}
	pair, err := h.svc.RefreshSession(r.Context(), presented)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	h.cookies.set(w, AccessCookie, pair.AccessToken, h.svc.AccessTTL())
	h.cookies.set(w, RefreshCookie, pair.RefreshToken, h.svc.RefreshTTL())
	response.JSON(w, http.StatusOK, pair, "Access token refreshed")
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	me, ok := identity.FromContext(r.Context())
	if !ok {
		response.Error(w, h.logger, apperr.Unauthorized(msgUnauthorized))
		return
	}
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid change-password payload", "err", err)
		response.Error(w, h.logger, apperr.Validation("invalid payload"))
		return
	}
	if err := h.svc.ChangePassword(r.Context(), me.ID, req.OldPassword, req.NewPassword); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, struct{}{}, "Password changed successfully")
}
