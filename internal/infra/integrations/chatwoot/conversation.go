package chatwoot

import (
	"fmt"

	"vkwoot/internal/ports"
	"vkwoot/platform/logger"
)

// ConversationManager reconciles contacts with their active Chatwoot
// conversation.
type ConversationManager struct {
	logger *logger.Logger
	client ports.ChatwootClient
}

// NewConversationManager creates a new conversation reconciler.
func NewConversationManager(logger *logger.Logger, client ports.ChatwootClient) *ConversationManager {
	return &ConversationManager{
		logger: logger,
		client: client,
	}
}

// EnsureConversation reuses the contact's active conversation or
// creates one. Match priority: a conversation tagged with the same
// external user id beats a source-id match, because the tag is written
// by this engine itself while the desk does not populate source ids
// consistently for API inboxes. Resolved conversations are never
// reused.
func (cm *ConversationManager) EnsureConversation(params ports.EnsureConversationParams) (int, error) {
	conversations, err := cm.client.ListContactConversations(params.ContactID)
	if err != nil {
		// Listing is a lookup step; a fresh conversation still routes
		// the message.
		cm.logger.WarnWithFields("Conversation listing failed", map[string]interface{}{
			"contact_id": params.ContactID,
			"error":      err.Error(),
		})
		conversations = nil
	}

	var sourceMatch *ports.ChatwootConversation
	for i := range conversations {
		conv := &conversations[i]
		if !isActive(conv.Status) {
			continue
		}
		if conv.InboxID != 0 && conv.InboxID != params.InboxID {
			continue
		}

		if params.ExternalUserID != "" && conv.CustomAttributes.Text(ports.AttrVKUserID) == params.ExternalUserID {
			cm.logger.InfoWithFields("Reusing conversation", map[string]interface{}{
				"conversation_id": conv.ID,
				"matched_by":      "external_user_id",
			})
			return conv.ID, nil
		}
		if sourceMatch == nil && conv.SourceID != "" && conv.SourceID == params.SourceID {
			sourceMatch = conv
		}
	}

	if sourceMatch != nil {
		cm.logger.InfoWithFields("Reusing conversation", map[string]interface{}{
			"conversation_id": sourceMatch.ID,
			"matched_by":      "source_id",
		})
		return sourceMatch.ID, nil
	}

	// Stamp the external user id so future calls match by the strongest
	// signal.
	custom := params.CustomAttributes.Clone()
	if params.ExternalUserID != "" {
		custom[ports.AttrVKUserID] = ports.StringAttr(params.ExternalUserID)
	}

	id, err := cm.client.CreateConversation(ports.CreateConversationParams{
		InboxID:          params.InboxID,
		SourceID:         params.SourceID,
		ContactID:        params.ContactID,
		CustomAttributes: custom,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create conversation: %w", err)
	}

	cm.logger.InfoWithFields("Conversation created", map[string]interface{}{
		"conversation_id": id,
		"inbox_id":        params.InboxID,
	})
	return id, nil
}

func isActive(status string) bool {
	return status == ports.ConversationStatusOpen || status == ports.ConversationStatusPending
}
