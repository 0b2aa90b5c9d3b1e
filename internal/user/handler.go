package user

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/identity"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/media"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/response"
)

// Handler exposes the profile endpoints. Every route sits behind the auth gate.
type Handler struct {
	svc    *ProfileService
	stager media.Stager
	logger *zap.SugaredLogger
}

func NewHandler(svc *ProfileService, stager media.Stager, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, stager: stager, logger: logger}
}

type UpdateUsernameRequest struct {
	Username string `json:"username"`
}

type UpdateFullnameRequest struct {
	Fullname string `json:"fullname"`
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	me, ok := identity.FromContext(r.Context())
	if !ok {
		response.Error(w, h.logger, apperr.Unauthorized("Unauthorized request"))
		return
	}
	p, err := h.svc.CurrentUser(r.Context(), me.ID)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, p, "Current user fetched successfully")
}

func (h *Handler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	me, ok := identity.FromContext(r.Context())
	if !ok {
		response.Error(w, h.logger, apperr.Unauthorized("Unauthorized request"))
		return
	}
	var req UpdateUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid update-username payload", "err", err)
		response.Error(w, h.logger, apperr.Validation("invalid payload"))
		return
	}
	p, err := h.svc.UpdateUsername(r.Context(), me.ID, req.Username)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, p, "Username updated successfully")
}

func (h *Handler) UpdateFullname(w http.ResponseWriter, r *http.Request) {
	me, ok := identity.FromContext(r.Context())
	if !ok {
		response.Error(w, h.logger, apperr.Unauthorized("Unauthorized request"))
		return
	}
	var req UpdateFullnameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid update-fullname payload", "err", err)
		response.Error(w, h.logger, apperr.Validation("invalid payload"))
		return
	}
	p, err := h.svc.UpdateFullname(r.Context(), me.ID, req.Fullname)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, p, "Fullname updated successfully")
}

func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.svc.UpdateAvatar, "Avatar updated successfully")
}

func (h *Handler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.svc.UpdateCoverImage, "Cover image updated successfully")
}

func (h *Handler) updateImage(w http.ResponseWriter, r *http.Request, field string,
	update func(ctx context.Context, id, localPath string) (*entity.Profile, error), msg string) {
	me, ok := identity.FromContext(r.Context())
	if !ok {
		response.Error(w, h.logger, apperr.Unauthorized("Unauthorized request"))
		return
	}
	h.stager.LimitBody(w, r, 1)
	path, err := h.stager.StageFromRequest(r, field)
	defer media.Cleanup(path)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		response.Error(w, h.logger, media.StageError(err))
		return
	}
	p, err := update(r.Context(), me.ID, path)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, p, msg)
}
