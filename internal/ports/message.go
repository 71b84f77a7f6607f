package ports

import (
	"context"
	"encoding/json"
)

// TextContent is the only content kind the bridge interprets; other VK
// content arrives as opaque attachments on the raw payload.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UnifiedMessage normalizes a platform wire message into the single
// envelope the reconciliation engine consumes.
type UnifiedMessage struct {
	Channel     string          `json:"channel"`
	SenderID    string          `json:"sender_id"`
	RecipientID string          `json:"recipient_id"`
	Content     TextContent     `json:"content"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// MessageHandler processes one inbound unified message.
type MessageHandler func(ctx context.Context, msg UnifiedMessage) error
