package chatwoot

import (
	"fmt"
	"strings"

	"vkwoot/internal/ports"
	"vkwoot/platform/logger"
)

// attributeLookupKeys are the platform-id keys tried, in this order,
// against /contacts/filter before falling back to free-text search.
var attributeLookupKeys = []string{ports.AttrVKUserID, "telegram_user_id"}

// ContactSync reconciles external platform users with Chatwoot
// contacts. It is stateless between calls; all state lives in Chatwoot.
type ContactSync struct {
	logger *logger.Logger
	client ports.ChatwootClient
}

// NewContactSync creates a new contact reconciler.
func NewContactSync(logger *logger.Logger, client ports.ChatwootClient) *ContactSync {
	return &ContactSync{
		logger: logger,
		client: client,
	}
}

// EnsureContact upserts the contact for one platform user. Lookup order
// is strict: attribute filter, then free-text search, then create.
// Lookup failures fall through; only the final create can fail the call.
func (cs *ContactSync) EnsureContact(params ports.EnsureContactParams) (*ports.ContactRef, error) {
	contact := cs.lookupByAttributes(params.CustomAttributes)
	if contact == nil {
		contact = cs.lookupBySearch(params.SearchKey)
	}

	if contact != nil {
		cs.updateOnFind(contact, params)
	} else {
		created, err := cs.createContact(params)
		if err != nil {
			return nil, err
		}
		contact = created
	}

	sourceID := extractSourceID(contact, params.InboxID)
	if sourceID == "" {
		// No binding yet, e.g. the desk has not assigned one for a
		// freshly created contact.
		sourceID = params.SearchKey
	}

	externalUserID := contact.CustomAttributes.Text(ports.AttrVKUserID)
	if externalUserID == "" {
		externalUserID = params.CustomAttributes.Text(ports.AttrVKUserID)
	}

	cs.logger.InfoWithFields("Contact ensured", map[string]interface{}{
		"contact_id": contact.ID,
		"inbox_id":   params.InboxID,
		"source_id":  sourceID,
	})

	return &ports.ContactRef{
		ID:             contact.ID,
		SourceID:       sourceID,
		ExternalUserID: externalUserID,
	}, nil
}

// lookupByAttributes filters contacts by the recognized platform-id
// keys present in the attribute bag. Any failure, including 4xx from
// desks without the custom attributes defined, falls through to search.
func (cs *ContactSync) lookupByAttributes(attrs ports.Attributes) *ports.ChatwootContact {
	var filters []ports.AttributeFilter
	for _, key := range attributeLookupKeys {
		if attrs.Has(key) {
			filters = append(filters, ports.AttributeFilter{Key: key, Value: attrs.Text(key)})
		}
	}
	if len(filters) == 0 {
		return nil
	}

	contacts, err := cs.client.FilterContacts(filters)
	if err != nil {
		cs.logger.WarnWithFields("Contact filter lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	if len(contacts) == 0 {
		return nil
	}
	return &contacts[0]
}

func (cs *ContactSync) lookupBySearch(searchKey string) *ports.ChatwootContact {
	contacts, err := cs.client.SearchContacts(searchKey)
	if err != nil {
		cs.logger.WarnWithFields("Contact search failed", map[string]interface{}{
			"search_key": searchKey,
			"error":      err.Error(),
		})
		return nil
	}
	if len(contacts) == 0 {
		return nil
	}
	return &contacts[0]
}

// updateOnFind refreshes a reused contact's attribute bags, and its name
// when the existing one is blank. Both updates are best effort.
func (cs *ContactSync) updateOnFind(contact *ports.ChatwootContact, params ports.EnsureContactParams) {
	if params.CustomAttributes != nil || params.AdditionalAttributes != nil {
		err := cs.client.UpdateContact(contact.ID, ports.UpdateContactParams{
			Identifier:           vkIdentifier(params.CustomAttributes),
			CustomAttributes:     params.CustomAttributes,
			AdditionalAttributes: params.AdditionalAttributes,
		})
		if err != nil {
			cs.logger.WarnWithFields("Contact attribute update skipped", map[string]interface{}{
				"contact_id": contact.ID,
				"error":      err.Error(),
			})
		}
	}

	if params.Name != "" && strings.TrimSpace(contact.Name) == "" {
		err := cs.client.UpdateContact(contact.ID, ports.UpdateContactParams{Name: params.Name})
		if err != nil {
			cs.logger.WarnWithFields("Contact name update skipped", map[string]interface{}{
				"contact_id": contact.ID,
				"error":      err.Error(),
			})
		}
	}
}

func (cs *ContactSync) createContact(params ports.EnsureContactParams) (*ports.ChatwootContact, error) {
	name := params.Name
	if name == "" {
		name = params.SearchKey
	}

	contact, err := cs.client.CreateContact(ports.CreateContactParams{
		InboxID:              params.InboxID,
		Name:                 name,
		PhoneNumber:          params.Phone,
		Email:                params.Email,
		Identifier:           vkIdentifier(params.CustomAttributes),
		CustomAttributes:     params.CustomAttributes,
		AdditionalAttributes: params.AdditionalAttributes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return contact, nil
}

// extractSourceID finds the source id of the contact's binding for a
// specific inbox, empty when no binding exists.
func extractSourceID(contact *ports.ChatwootContact, inboxID int) string {
	for _, ci := range contact.ContactInboxes {
		if ci.Inbox.ID == inboxID && ci.SourceID != "" {
			return ci.SourceID
		}
	}
	return ""
}

func vkIdentifier(attrs ports.Attributes) string {
	if id := attrs.Text(ports.AttrVKUserID); id != "" {
		return "vk:" + id
	}
	return ""
}
