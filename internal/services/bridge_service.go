package services

import (
	"context"

	"vkwoot/internal/ports"
	"vkwoot/pkg/errors"
	"vkwoot/platform/logger"
)

// BridgeService orchestrates the inbound path: one VK message becomes
// one Chatwoot message on the sender's reconciled conversation.
type BridgeService struct {
	logger        *logger.Logger
	enricher      ports.ProfileEnricher
	contacts      ports.ContactResolver
	conversations ports.ConversationResolver
	client        ports.ChatwootClient
	inboxID       int
}

func NewBridgeService(
	logger *logger.Logger,
	enricher ports.ProfileEnricher,
	contacts ports.ContactResolver,
	conversations ports.ConversationResolver,
	client ports.ChatwootClient,
	inboxID int,
) *BridgeService {
	return &BridgeService{
		logger:        logger,
		enricher:      enricher,
		contacts:      contacts,
		conversations: conversations,
		client:        client,
		inboxID:       inboxID,
	}
}

// HandleInbound records one inbound message in Chatwoot. Enrichment and
// lookups degrade gracefully; only the create and send steps can fail
// the call.
func (s *BridgeService) HandleInbound(ctx context.Context, msg ports.UnifiedMessage) error {
	senderID := msg.SenderID
	if senderID == "" {
		senderID = msg.RecipientID
	}

	profile := s.enricher.Enrich(senderID)

	custom := profile.Custom.Merged(ports.Attributes{
		ports.AttrVKPeerID: ports.StringAttr(msg.RecipientID),
	})

	contact, err := s.contacts.EnsureContact(ports.EnsureContactParams{
		InboxID:              s.inboxID,
		SearchKey:            senderID,
		Name:                 profile.Name,
		CustomAttributes:     custom,
		AdditionalAttributes: profile.Additional,
	})
	if err != nil {
		return errors.Wrap(err, "failed to ensure contact")
	}

	conversationID, err := s.conversations.EnsureConversation(ports.EnsureConversationParams{
		InboxID:        s.inboxID,
		ContactID:      contact.ID,
		SourceID:       contact.SourceID,
		ExternalUserID: contact.ExternalUserID,
		CustomAttributes: ports.Attributes{
			"channel":          ports.StringAttr("vk"),
			ports.AttrVKPeerID: ports.StringAttr(msg.RecipientID),
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to ensure conversation")
	}

	messageID, err := s.client.SendMessage(conversationID, msg.Content.Text, ports.MessageTypeIncoming)
	if err != nil {
		return errors.Wrap(err, "failed to record message")
	}

	s.logger.InfoWithFields("Inbound message recorded", map[string]interface{}{
		"sender_id":       senderID,
		"contact_id":      contact.ID,
		"conversation_id": conversationID,
		"message_id":      messageID,
	})
	return nil
}
