package response

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
)

// Envelope is the uniform JSON body of every API response.
type Envelope struct {
	Status  int    `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// JSON writes data wrapped in the envelope.
func JSON(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Status:  status,
		Data:    data,
		Message: message,
		Success: status < http.StatusBadRequest,
	})
}

// Error maps err onto its taxonomy status and writes the envelope.
// Internal errors are logged with their cause; everything else at debug.
func Error(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if logger != nil {
		if kind == apperr.KindInternal {
			logger.Errorw("request failed", "kind", kind.String(), "err", err)
		} else {
			logger.Debugw("request rejected", "kind", kind.String(), "err", err)
		}
	}
	JSON(w, status, nil, apperr.Message(err))
}
