package chatwoot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vkwoot/internal/ports"
	"vkwoot/platform/logger"
)

// APIError is a non-2xx Chatwoot response. Callers decide per call
// whether it is fallback-able (lookup steps) or fatal (create steps).
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chatwoot API request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client implements ports.ChatwootClient against the account-scoped
// REST API. It owns no state and performs a single attempt per call.
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	accountBase string
	token       string
}

// NewClient creates a new Chatwoot API client.
func NewClient(baseURL, token string, accountID int, logger *logger.Logger) *Client {
	return &Client{
		accountBase: fmt.Sprintf("%s/api/v1/accounts/%d", strings.TrimRight(baseURL, "/"), accountID),
		token:       token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SearchContacts runs a free-text contact search.
func (c *Client) SearchContacts(query string) ([]ports.ChatwootContact, error) {
	var response struct {
		Payload []ports.ChatwootContact `json:"payload"`
	}

	endpoint := fmt.Sprintf("/contacts/search?q=%s", url.QueryEscape(query))
	if err := c.makeRequest(http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}

	return response.Payload, nil
}

// FilterContacts filters contacts by attribute equality. Keys are the
// raw attribute keys (e.g. "vk_user_id"), not "custom_attribute_*".
func (c *Client) FilterContacts(filters []ports.AttributeFilter) ([]ports.ChatwootContact, error) {
	predicates := make([]map[string]interface{}, 0, len(filters))
	for _, f := range filters {
		predicates = append(predicates, map[string]interface{}{
			"attribute_key":   f.Key,
			"filter_operator": "equal_to",
			"values":          []string{f.Value},
		})
	}
	payload := map[string]interface{}{
		"payload": predicates,
	}

	var response struct {
		Payload []ports.ChatwootContact `json:"payload"`
	}

	if err := c.makeRequest(http.MethodPost, "/contacts/filter", payload, &response); err != nil {
		return nil, fmt.Errorf("failed to filter contacts: %w", err)
	}

	return response.Payload, nil
}

// CreateContact creates a new contact bound to an inbox.
func (c *Client) CreateContact(params ports.CreateContactParams) (*ports.ChatwootContact, error) {
	payload := map[string]interface{}{
		"inbox_id": params.InboxID,
	}
	if params.Name != "" {
		payload["name"] = params.Name
	}
	if params.PhoneNumber != "" {
		payload["phone_number"] = normalizePhone(params.PhoneNumber)
	}
	if params.Email != "" {
		payload["email"] = params.Email
	}
	if params.Identifier != "" {
		payload["identifier"] = params.Identifier
	}
	payload["custom_attributes"] = orEmpty(params.CustomAttributes)
	payload["additional_attributes"] = orEmpty(params.AdditionalAttributes)

	var raw json.RawMessage
	if err := c.makeRequest(http.MethodPost, "/contacts", payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	contact, err := unwrapContact(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return contact, nil
}

// UpdateContact patches a contact; only set fields are sent.
func (c *Client) UpdateContact(contactID int, params ports.UpdateContactParams) error {
	payload := map[string]interface{}{}
	if params.Name != "" {
		payload["name"] = params.Name
	}
	if params.Identifier != "" {
		payload["identifier"] = params.Identifier
	}
	if params.CustomAttributes != nil {
		payload["custom_attributes"] = params.CustomAttributes
	}
	if params.AdditionalAttributes != nil {
		payload["additional_attributes"] = params.AdditionalAttributes
	}

	endpoint := fmt.Sprintf("/contacts/%d", contactID)
	if err := c.makeRequest(http.MethodPatch, endpoint, payload, nil); err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}

	return nil
}

// ListContactConversations lists all conversations for a contact. The
// API is not inbox-scoped; filtering is the caller's job.
func (c *Client) ListContactConversations(contactID int) ([]ports.ChatwootConversation, error) {
	var response struct {
		Payload []ports.ChatwootConversation `json:"payload"`
	}

	endpoint := fmt.Sprintf("/contacts/%d/conversations", contactID)
	if err := c.makeRequest(http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to list contact conversations: %w", err)
	}

	return response.Payload, nil
}

// CreateConversation creates a conversation and returns its id.
func (c *Client) CreateConversation(params ports.CreateConversationParams) (int, error) {
	payload := map[string]interface{}{
		"source_id": params.SourceID,
		"inbox_id":  params.InboxID,
	}
	if params.ContactID != 0 {
		payload["contact_id"] = params.ContactID
	}
	if params.CustomAttributes != nil {
		payload["custom_attributes"] = params.CustomAttributes
	}

	var raw json.RawMessage
	if err := c.makeRequest(http.MethodPost, "/conversations", payload, &raw); err != nil {
		return 0, fmt.Errorf("failed to create conversation: %w", err)
	}

	id, err := unwrapID(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to create conversation: %w", err)
	}
	return id, nil
}

// SendMessage records a message on a conversation. messageType is
// "incoming" (from the VK user) or "outgoing" (from an agent).
func (c *Client) SendMessage(conversationID int, content, messageType string) (int, error) {
	payload := map[string]interface{}{
		"content":      content,
		"message_type": messageType,
	}

	var raw json.RawMessage
	endpoint := fmt.Sprintf("/conversations/%d/messages", conversationID)
	if err := c.makeRequest(http.MethodPost, endpoint, payload, &raw); err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}

	id, err := unwrapID(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return id, nil
}

// CreateWebhook registers an account webhook for the given events.
func (c *Client) CreateWebhook(webhookURL string, subscriptions []string) error {
	payload := map[string]interface{}{
		"webhook_url":   webhookURL,
		"subscriptions": subscriptions,
	}

	if err := c.makeRequest(http.MethodPost, "/webhooks", payload, nil); err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	return nil
}

// makeRequest makes a single HTTP request to the Chatwoot API.
func (c *Client) makeRequest(method, endpoint string, payload interface{}, result interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.accountBase+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	// Both header forms for compatibility across Chatwoot versions.
	req.Header.Set("api_access_token", c.token)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// unwrapContact accepts the three contact response shapes Chatwoot
// versions produce: {payload:{contact}}, {contact} or the bare contact.
func unwrapContact(raw json.RawMessage) (*ports.ChatwootContact, error) {
	var envelope struct {
		Payload struct {
			Contact *ports.ChatwootContact `json:"contact"`
		} `json:"payload"`
		Contact *ports.ChatwootContact `json:"contact"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Payload.Contact != nil {
			return envelope.Payload.Contact, nil
		}
		if envelope.Contact != nil {
			return envelope.Contact, nil
		}
	}

	var contact ports.ChatwootContact
	if err := json.Unmarshal(raw, &contact); err != nil || contact.ID == 0 {
		return nil, fmt.Errorf("unrecognized contact response shape")
	}
	return &contact, nil
}

// unwrapID extracts an entity id that may be top-level or nested under
// "payload".
func unwrapID(raw json.RawMessage) (int, error) {
	var envelope struct {
		ID      int `json:"id"`
		Payload struct {
			ID int `json:"id"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return 0, fmt.Errorf("unrecognized response shape: %w", err)
	}
	if envelope.ID != 0 {
		return envelope.ID, nil
	}
	if envelope.Payload.ID != 0 {
		return envelope.Payload.ID, nil
	}
	return 0, fmt.Errorf("response carries no id")
}

func normalizePhone(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}

func orEmpty(attrs ports.Attributes) ports.Attributes {
	if attrs == nil {
		return ports.Attributes{}
	}
	return attrs
}
