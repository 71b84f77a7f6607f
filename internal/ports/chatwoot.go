package ports

// ChatwootClient is the typed wrapper over the account-scoped Chatwoot
// REST API. Implementations carry no state beyond credentials and make a
// single attempt per call; retry policy belongs to the caller.
type ChatwootClient interface {
	SearchContacts(query string) ([]ChatwootContact, error)
	FilterContacts(filters []AttributeFilter) ([]ChatwootContact, error)
	CreateContact(params CreateContactParams) (*ChatwootContact, error)
	UpdateContact(contactID int, params UpdateContactParams) error

	ListContactConversations(contactID int) ([]ChatwootConversation, error)
	CreateConversation(params CreateConversationParams) (int, error)

	SendMessage(conversationID int, content, messageType string) (int, error)

	CreateWebhook(webhookURL string, subscriptions []string) error
}

// ContactResolver maps an external platform user to exactly one Chatwoot
// contact.
type ContactResolver interface {
	EnsureContact(params EnsureContactParams) (*ContactRef, error)
}

// ConversationResolver maps a resolved contact to at most one active
// conversation.
type ConversationResolver interface {
	EnsureConversation(params EnsureConversationParams) (int, error)
}

// AttributeFilter is one equality predicate for /contacts/filter. Filters
// are evaluated in slice order so lookups stay deterministic.
type AttributeFilter struct {
	Key   string
	Value string
}

type CreateContactParams struct {
	InboxID              int
	Name                 string
	PhoneNumber          string
	Email                string
	Identifier           string
	CustomAttributes     Attributes
	AdditionalAttributes Attributes
}

// UpdateContactParams carries only the fields to PATCH; nil maps and
// empty strings are omitted from the request.
type UpdateContactParams struct {
	Name                 string
	Identifier           string
	CustomAttributes     Attributes
	AdditionalAttributes Attributes
}

type CreateConversationParams struct {
	InboxID          int
	SourceID         string
	ContactID        int
	CustomAttributes Attributes
}

type EnsureContactParams struct {
	InboxID              int
	SearchKey            string
	Name                 string
	Phone                string
	Email                string
	CustomAttributes     Attributes
	AdditionalAttributes Attributes
}

// ContactRef is the reconciliation result handed to the conversation
// step. ExternalUserID is the platform user id read back from the
// resolved contact, empty if the contact never carried one.
type ContactRef struct {
	ID             int
	SourceID       string
	ExternalUserID string
}

type EnsureConversationParams struct {
	InboxID          int
	ContactID        int
	SourceID         string
	ExternalUserID   string
	CustomAttributes Attributes
}

type ChatwootContact struct {
	ID                   int                    `json:"id"`
	Name                 string                 `json:"name"`
	Email                string                 `json:"email,omitempty"`
	PhoneNumber          string                 `json:"phone_number,omitempty"`
	Identifier           string                 `json:"identifier,omitempty"`
	CustomAttributes     Attributes             `json:"custom_attributes,omitempty"`
	AdditionalAttributes Attributes             `json:"additional_attributes,omitempty"`
	ContactInboxes       []ChatwootContactInbox `json:"contact_inboxes,omitempty"`
}

type ChatwootContactInbox struct {
	SourceID string           `json:"source_id"`
	Inbox    ChatwootInboxRef `json:"inbox"`
}

type ChatwootInboxRef struct {
	ID int `json:"id"`
}

type ChatwootConversation struct {
	ID               int        `json:"id"`
	Status           string     `json:"status"`
	InboxID          int        `json:"inbox_id"`
	SourceID         string     `json:"source_id"`
	ContactID        int        `json:"contact_id,omitempty"`
	CustomAttributes Attributes `json:"custom_attributes,omitempty"`
}

// Conversation statuses. Only open and pending conversations are ever
// reused by the reconciliation engine.
const (
	ConversationStatusOpen     = "open"
	ConversationStatusPending  = "pending"
	ConversationStatusResolved = "resolved"
)

const (
	MessageTypeIncoming = "incoming"
	MessageTypeOutgoing = "outgoing"
)

// ChatwootWebhookPayload is the inbound agent-side webhook event.
type ChatwootWebhookPayload struct {
	Event        string               `json:"event" validate:"required"`
	MessageType  string               `json:"message_type"`
	Private      bool                 `json:"private"`
	Content      string               `json:"content"`
	Conversation *WebhookConversation `json:"conversation"`
}

type WebhookConversation struct {
	ID               int                 `json:"id"`
	Channel          string              `json:"channel"`
	CustomAttributes Attributes          `json:"custom_attributes"`
	ContactInbox     WebhookContactInbox `json:"contact_inbox"`
	Meta             WebhookMeta         `json:"meta"`
}

type WebhookContactInbox struct {
	SourceID string `json:"source_id"`
}

type WebhookMeta struct {
	Channel string        `json:"channel"`
	Sender  WebhookSender `json:"sender"`
}

// WebhookSender is the conversation's contact (the VK user), not the
// agent who wrote the reply.
type WebhookSender struct {
	ID                   int        `json:"id"`
	Name                 string     `json:"name"`
	CustomAttributes     Attributes `json:"custom_attributes"`
	AdditionalAttributes Attributes `json:"additional_attributes"`
}
