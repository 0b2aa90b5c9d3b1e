package channel

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/identity"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/response"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Profile serves GET /c/{username}.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	me, ok := identity.FromContext(r.Context())
	if !ok {
		response.Error(w, h.logger, apperr.Unauthorized("Unauthorized request"))
		return
	}
	v, err := h.svc.GetChannelProfile(r.Context(), chi.URLParam(r, "username"), me.ID)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, v, "User channel fetched successfully")
}

// History serves GET /history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	me, ok := identity.FromContext(r.Context())
	if !ok {
		response.Error(w, h.logger, apperr.Unauthorized("Unauthorized request"))
		return
	}
	videos, err := h.svc.GetWatchHistory(r.Context(), me.ID)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, videos, "Watch history fetched successfully")
}

// RecordWatch serves POST /history/{videoId}.
func (h *Handler) RecordWatch(w http.ResponseWriter, r *http.Request) {
	me, ok := identity.FromContext(r.Context())
	if !ok {
		response.Error(w, h.logger, apperr.Unauthorized("Unauthorized request"))
		return
	}
	if err := h.svc.RecordWatch(r.Context(), me.ID, chi.URLParam(r, "videoId")); err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, struct{}{}, "Watch history updated")
}
