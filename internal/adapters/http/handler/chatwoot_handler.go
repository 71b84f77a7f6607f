package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vkwoot/internal/ports"
	"vkwoot/internal/services/shared/validation"
	"vkwoot/platform/logger"
)

// WebhookProcessor relays Chatwoot webhook events outward.
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, payload *ports.ChatwootWebhookPayload) error
}

// ChatwootHandler receives webhook posts from Chatwoot.
type ChatwootHandler struct {
	logger    *logger.Logger
	processor WebhookProcessor
	validator *validation.Validator
	webhookID string
}

func NewChatwootHandler(logger *logger.Logger, processor WebhookProcessor, webhookID string) *ChatwootHandler {
	return &ChatwootHandler{
		logger:    logger,
		processor: processor,
		validator: validation.New(),
		webhookID: webhookID,
	}
}

// HandleWebhook acknowledges every parseable event with 200 so Chatwoot
// does not retry; relay failures are logged and swallowed.
func (h *ChatwootHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "webhookID") != h.webhookID {
		http.NotFound(w, r)
		return
	}

	var payload ports.ChatwootWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	if err := h.validator.ValidateStruct(&payload); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := h.processor.ProcessWebhook(r.Context(), &payload); err != nil {
		h.logger.ErrorWithFields("Failed to relay Chatwoot webhook", map[string]interface{}{
			"event": payload.Event,
			"error": err.Error(),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func (h *ChatwootHandler) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
