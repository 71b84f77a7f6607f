package chatwoot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"vkwoot/internal/ports"
	"vkwoot/platform/logger"
)

const eventMessageCreated = "message_created"

// WebhookHandler relays agent replies from Chatwoot webhooks to VK.
type WebhookHandler struct {
	logger  *logger.Logger
	gateway ports.VKGateway
}

func NewWebhookHandler(logger *logger.Logger, gateway ports.VKGateway) *WebhookHandler {
	return &WebhookHandler{
		logger:  logger,
		gateway: gateway,
	}
}

// ProcessWebhook handles one Chatwoot webhook event. Unroutable events
// are logged and dropped; only a failed VK send propagates.
func (h *WebhookHandler) ProcessWebhook(ctx context.Context, payload *ports.ChatwootWebhookPayload) error {
	if payload.Event != eventMessageCreated || payload.MessageType != ports.MessageTypeOutgoing {
		h.logger.DebugWithFields("Ignoring webhook event", map[string]interface{}{
			"event":        payload.Event,
			"message_type": payload.MessageType,
		})
		return nil
	}

	if payload.Private {
		h.logger.Debug("Skipping private message (internal note)")
		return nil
	}

	conv := payload.Conversation
	if conv == nil {
		h.logger.Warn("Webhook payload carries no conversation")
		return nil
	}

	if !h.isVKChannel(conv) {
		h.logger.DebugWithFields("Ignoring non-VK channel message", map[string]interface{}{
			"channel": conv.Channel,
		})
		return nil
	}

	recipientID, matchedBy := resolveRecipient(conv)
	if recipientID == "" {
		h.logger.ErrorWithFields("No VK recipient resolved, dropping reply", map[string]interface{}{
			"conversation_id": conv.ID,
			"channel":         conv.Channel,
			"contact_id":      conv.Meta.Sender.ID,
			"source_id":       conv.ContactInbox.SourceID,
		})
		return nil
	}

	h.logger.InfoWithFields("Relaying agent reply to VK", map[string]interface{}{
		"conversation_id": conv.ID,
		"recipient_id":    recipientID,
		"matched_by":      matchedBy,
	})

	if err := h.gateway.SendText(recipientID, payload.Content); err != nil {
		return fmt.Errorf("failed to send reply to VK: %w", err)
	}
	return nil
}

// isVKChannel inspects the channel field loosely: API-type inboxes have
// no strict channel enum, so "api" counts as ours alongside "vk".
func (h *WebhookHandler) isVKChannel(conv *ports.WebhookConversation) bool {
	channel := conv.Channel
	if channel == "" {
		channel = conv.Meta.Channel
	}
	lower := strings.ToLower(channel)
	return strings.Contains(lower, "vk") || strings.Contains(lower, "api")
}

// resolveRecipient tries each destination-id source in order of
// reliability. The conversation custom attributes come first because
// the reconciliation engine writes them itself.
func resolveRecipient(conv *ports.WebhookConversation) (string, string) {
	if id := conv.CustomAttributes.Text(ports.AttrVKUserID); id != "" {
		return id, "conversation_custom_attributes"
	}
	if id := conv.CustomAttributes.Text(ports.AttrVKPeerID); id != "" {
		return id, "conversation_custom_attributes"
	}

	sender := conv.Meta.Sender
	if id := sender.CustomAttributes.Text(ports.AttrVKUserID); id != "" {
		return id, "contact_custom_attributes"
	}
	if id := sender.CustomAttributes.Text(ports.AttrVKPeerID); id != "" {
		return id, "contact_custom_attributes"
	}
	if id := sender.AdditionalAttributes.Text(ports.AttrVKUserID); id != "" {
		return id, "contact_additional_attributes"
	}

	if sourceID := conv.ContactInbox.SourceID; sourceID != "" {
		if rest, ok := strings.CutPrefix(sourceID, "vk:"); ok && rest != "" {
			return rest, "source_id"
		}
		if isDigits(sourceID) {
			return sourceID, "source_id"
		}
	}

	// Numeric contact id as last resort.
	if sender.ID != 0 {
		return strconv.Itoa(sender.ID), "contact_id"
	}
	return "", ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
