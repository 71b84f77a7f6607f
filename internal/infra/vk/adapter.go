package vk

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"vkwoot/internal/ports"
	"vkwoot/pkg/errors"
	"vkwoot/platform/config"
	"vkwoot/platform/logger"
)

// ackBody is the literal acknowledgment VK's delivery contract
// requires; any other response triggers retries upstream.
const ackBody = "ok"

// Adapter is the Callback API state machine. It validates and parses
// inbound VK events, hands messages to the registered handler, and
// formats outbound replies.
type Adapter struct {
	config  config.VKConfig
	client  *Client
	logger  *logger.Logger
	handler ports.MessageHandler
}

func NewAdapter(cfg config.VKConfig, client *Client, logger *logger.Logger) *Adapter {
	return &Adapter{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// OnMessage registers the inbound message handler. Registration happens
// once at wiring time, before the HTTP server starts.
func (a *Adapter) OnMessage(handler ports.MessageHandler) {
	a.handler = handler
}

// HandleCallback processes one raw callback event and returns the
// plain-text body owed to VK. Validation failures fail closed; handler
// failures do not break the acknowledgment contract.
func (a *Adapter) HandleCallback(ctx context.Context, body []byte) (string, error) {
	var payload ports.VKCallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errors.Wrap(err, "invalid callback payload")
	}

	a.logger.InfoWithFields("VK event received", map[string]interface{}{
		"type":     payload.Type,
		"group_id": payload.GroupID,
	})

	// The confirmation handshake happens before a secret is configured
	// on the VK side, so only the group id is checked.
	if payload.Type == ports.VKEventConfirmation {
		if payload.GroupID != a.config.GroupID {
			return "", errors.ErrVKInvalidGroup
		}
		return a.config.Confirmation, nil
	}

	if payload.Secret != a.config.Secret {
		return "", errors.ErrVKInvalidSecret
	}
	if payload.GroupID != a.config.GroupID {
		return "", errors.ErrVKInvalidGroup
	}

	switch payload.Type {
	case ports.VKEventMessageNew:
		a.handleMessageNew(ctx, &payload, body)
	default:
		a.logger.InfoWithFields("Ignored VK event type", map[string]interface{}{
			"type": payload.Type,
		})
	}

	return ackBody, nil
}

func (a *Adapter) handleMessageNew(ctx context.Context, payload *ports.VKCallbackPayload, raw []byte) {
	if a.handler == nil || payload.Object == nil || payload.Object.Message == nil {
		return
	}

	message := payload.Object.Message
	if message.PeerID == 0 {
		// Cannot route a reply without a destination.
		a.logger.Debug("Skipping incoming message without peer id")
		return
	}

	peerID := strconv.Itoa(message.PeerID)
	senderID := peerID
	if message.FromID != 0 {
		senderID = strconv.Itoa(message.FromID)
	}

	unified := ports.UnifiedMessage{
		Channel:     "vk",
		SenderID:    senderID,
		RecipientID: peerID,
		Content: ports.TextContent{
			Type: "text",
			Text: strings.TrimSpace(message.Text),
		},
		Raw: raw,
	}

	if err := a.handler(ctx, unified); err != nil {
		// The ack contract stands even when processing failed.
		a.logger.ErrorWithFields("Failed to process VK message", map[string]interface{}{
			"sender_id": senderID,
			"error":     err.Error(),
		})
	}
}

// SendText delivers an agent reply to a VK user. Each send carries a
// fresh random correlation id.
func (a *Adapter) SendText(recipientID, text string) error {
	if text == "" {
		a.logger.Info("Skipping send: empty text")
		return nil
	}

	messageID, err := a.client.SendMessage(recipientID, text, rand.Int32())
	if err != nil {
		return fmt.Errorf("failed to send text to %s: %w", recipientID, err)
	}

	a.logger.InfoWithFields("Message sent to VK", map[string]interface{}{
		"peer_id":    recipientID,
		"message_id": messageID,
	})
	return nil
}
