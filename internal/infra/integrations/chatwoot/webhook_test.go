package chatwoot

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vkwoot/internal/ports"
)

type fakeGateway struct {
	sentTo   []string
	sentText []string
	err      error
}

func (g *fakeGateway) SendText(recipientID, text string) error {
	g.sentTo = append(g.sentTo, recipientID)
	g.sentText = append(g.sentText, text)
	return g.err
}

func outgoingPayload(conv *ports.WebhookConversation) *ports.ChatwootWebhookPayload {
	return &ports.ChatwootWebhookPayload{
		Event:        "message_created",
		MessageType:  ports.MessageTypeOutgoing,
		Content:      "hello from support",
		Conversation: conv,
	}
}

func vkConversation() *ports.WebhookConversation {
	return &ports.WebhookConversation{
		ID:      123,
		Channel: "Channel::Api",
		CustomAttributes: ports.Attributes{
			ports.AttrVKUserID: ports.StringAttr("42"),
		},
	}
}

func TestProcessWebhookRelaysOutgoingMessage(t *testing.T) {
	gateway := &fakeGateway{}
	h := NewWebhookHandler(testLogger(), gateway)

	err := h.ProcessWebhook(context.Background(), outgoingPayload(vkConversation()))
	require.NoError(t, err)

	assert.Equal(t, []string{"42"}, gateway.sentTo)
	assert.Equal(t, []string{"hello from support"}, gateway.sentText)
}

func TestProcessWebhookIgnoresIncomingAndOtherEvents(t *testing.T) {
	gateway := &fakeGateway{}
	h := NewWebhookHandler(testLogger(), gateway)

	incoming := outgoingPayload(vkConversation())
	incoming.MessageType = ports.MessageTypeIncoming
	require.NoError(t, h.ProcessWebhook(context.Background(), incoming))

	other := outgoingPayload(vkConversation())
	other.Event = "conversation_status_changed"
	require.NoError(t, h.ProcessWebhook(context.Background(), other))

	assert.Empty(t, gateway.sentTo)
}

func TestProcessWebhookSkipsPrivateNotes(t *testing.T) {
	gateway := &fakeGateway{}
	h := NewWebhookHandler(testLogger(), gateway)

	payload := outgoingPayload(vkConversation())
	payload.Private = true
	require.NoError(t, h.ProcessWebhook(context.Background(), payload))

	assert.Empty(t, gateway.sentTo)
}

func TestProcessWebhookSkipsForeignChannels(t *testing.T) {
	gateway := &fakeGateway{}
	h := NewWebhookHandler(testLogger(), gateway)

	conv := vkConversation()
	conv.Channel = "Channel::Whatsapp"
	require.NoError(t, h.ProcessWebhook(context.Background(), outgoingPayload(conv)))

	assert.Empty(t, gateway.sentTo)
}

func TestProcessWebhookRecipientResolutionOrder(t *testing.T) {
	tests := []struct {
		name string
		conv *ports.WebhookConversation
		want string
	}{
		{
			name: "conversation custom attributes win",
			conv: &ports.WebhookConversation{
				Channel: "api",
				CustomAttributes: ports.Attributes{
					ports.AttrVKUserID: ports.StringAttr("42"),
				},
				Meta: ports.WebhookMeta{Sender: ports.WebhookSender{
					ID:               77,
					CustomAttributes: ports.Attributes{ports.AttrVKUserID: ports.StringAttr("99")},
				}},
			},
			want: "42",
		},
		{
			name: "contact custom attributes",
			conv: &ports.WebhookConversation{
				Channel: "api",
				Meta: ports.WebhookMeta{Sender: ports.WebhookSender{
					ID:               77,
					CustomAttributes: ports.Attributes{ports.AttrVKUserID: ports.StringAttr("99")},
				}},
			},
			want: "99",
		},
		{
			name: "contact additional attributes",
			conv: &ports.WebhookConversation{
				Channel: "api",
				Meta: ports.WebhookMeta{Sender: ports.WebhookSender{
					ID:                   77,
					AdditionalAttributes: ports.Attributes{ports.AttrVKUserID: ports.NumberAttr(55)},
				}},
			},
			want: "55",
		},
		{
			name: "source id with vk prefix",
			conv: &ports.WebhookConversation{
				Channel:      "api",
				ContactInbox: ports.WebhookContactInbox{SourceID: "vk:64"},
			},
			want: "64",
		},
		{
			name: "bare numeric source id",
			conv: &ports.WebhookConversation{
				Channel:      "api",
				ContactInbox: ports.WebhookContactInbox{SourceID: "64"},
			},
			want: "64",
		},
		{
			name: "contact id as last resort",
			conv: &ports.WebhookConversation{
				Channel:      "api",
				ContactInbox: ports.WebhookContactInbox{SourceID: "uuid-not-numeric"},
				Meta:         ports.WebhookMeta{Sender: ports.WebhookSender{ID: 77}},
			},
			want: "77",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &fakeGateway{}
			h := NewWebhookHandler(testLogger(), gateway)

			require.NoError(t, h.ProcessWebhook(context.Background(), outgoingPayload(tt.conv)))
			require.Len(t, gateway.sentTo, 1)
			assert.Equal(t, tt.want, gateway.sentTo[0])
		})
	}
}

func TestProcessWebhookDropsUnroutableReply(t *testing.T) {
	gateway := &fakeGateway{}
	h := NewWebhookHandler(testLogger(), gateway)

	conv := &ports.WebhookConversation{
		Channel:      "api",
		ContactInbox: ports.WebhookContactInbox{SourceID: "uuid-not-numeric"},
	}
	require.NoError(t, h.ProcessWebhook(context.Background(), outgoingPayload(conv)))
	assert.Empty(t, gateway.sentTo)
}

func TestProcessWebhookSendFailurePropagates(t *testing.T) {
	gateway := &fakeGateway{err: fmt.Errorf("vk down")}
	h := NewWebhookHandler(testLogger(), gateway)

	err := h.ProcessWebhook(context.Background(), outgoingPayload(vkConversation()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send reply to VK")
}
