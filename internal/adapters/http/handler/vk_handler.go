package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vkwoot/pkg/errors"
	"vkwoot/platform/logger"
)

// CallbackProcessor is the VK callback state machine.
type CallbackProcessor interface {
	HandleCallback(ctx context.Context, body []byte) (string, error)
}

// VKHandler receives VK Callback API posts.
type VKHandler struct {
	logger     *logger.Logger
	callback   CallbackProcessor
	callbackID string
}

func NewVKHandler(logger *logger.Logger, callback CallbackProcessor, callbackID string) *VKHandler {
	return &VKHandler{
		logger:     logger,
		callback:   callback,
		callbackID: callbackID,
	}
}

// HandleCallback answers VK with the plain-text body the callback
// contract requires: the confirmation string, the literal ack, or
// "error" with a non-2xx status.
func (h *VKHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "callbackID") != h.callbackID {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest)
		return
	}

	response, err := h.callback.HandleCallback(r.Context(), body)
	if err != nil {
		h.logger.WarnWithFields("VK callback rejected", map[string]interface{}{
			"error": err.Error(),
		})
		h.writeError(w, errors.GetAppError(err).Code)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(response))
}

func (h *VKHandler) writeError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte("error"))
}
