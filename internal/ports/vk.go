package ports

import "encoding/json"

// VKGateway sends outbound messages to VK users.
type VKGateway interface {
	SendText(recipientID, text string) error
}

// ProfileEnricher fetches a VK user's public profile and projects it
// into attribute bags. Enrichment is always best effort; a failed fetch
// yields a profile carrying only the user id.
type ProfileEnricher interface {
	Enrich(userID string) EnrichedProfile
}

type EnrichedProfile struct {
	Name string
	// Custom holds low-cardinality, matchable fields (vk_user_id, vk_bdate).
	Custom Attributes
	// Additional holds display-only enrichment.
	Additional Attributes
}

// VKCallbackPayload is one Callback API event as VK posts it.
type VKCallbackPayload struct {
	Type    string            `json:"type"`
	GroupID int               `json:"group_id"`
	Secret  string            `json:"secret,omitempty"`
	EventID string            `json:"event_id,omitempty"`
	Object  *VKCallbackObject `json:"object,omitempty"`
}

type VKCallbackObject struct {
	Message *VKMessage `json:"message,omitempty"`
}

type VKMessage struct {
	ID          int               `json:"id"`
	FromID      int               `json:"from_id"`
	PeerID      int               `json:"peer_id"`
	Text        string            `json:"text"`
	Date        int64             `json:"date"`
	RandomID    int               `json:"random_id,omitempty"`
	Payload     string            `json:"payload,omitempty"`
	Attachments []json.RawMessage `json:"attachments,omitempty"`
}

// Callback event types the adapter distinguishes; everything else is
// acknowledged without processing.
const (
	VKEventConfirmation = "confirmation"
	VKEventMessageNew   = "message_new"
)

// Attribute keys the bridge stamps on contacts and conversations.
const (
	AttrVKUserID = "vk_user_id"
	AttrVKPeerID = "vk_peer_id"
	AttrVKBdate  = "vk_bdate"
)

// VKUserProfile is the subset of users.get fields projected by the
// profile enricher.
type VKUserProfile struct {
	ID           int           `json:"id"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	ScreenName   string        `json:"screen_name,omitempty"`
	Bdate        string        `json:"bdate,omitempty"`
	Status       string        `json:"status,omitempty"`
	HomeTown     string        `json:"home_town,omitempty"`
	Sex          int           `json:"sex,omitempty"`
	Relation     int           `json:"relation,omitempty"`
	Verified     int           `json:"verified,omitempty"`
	Online       int           `json:"online,omitempty"`
	HasPhoto     int           `json:"has_photo,omitempty"`
	HasMobile    int           `json:"has_mobile,omitempty"`
	Timezone     *int          `json:"timezone,omitempty"`
	City         *VKPlace      `json:"city,omitempty"`
	Country      *VKPlace      `json:"country,omitempty"`
	Photo50      string        `json:"photo_50,omitempty"`
	Photo100     string        `json:"photo_100,omitempty"`
	Photo200Orig string        `json:"photo_200_orig,omitempty"`
	PhotoMax     string        `json:"photo_max,omitempty"`
	Site         string        `json:"site,omitempty"`
	Facebook     string        `json:"facebook,omitempty"`
	Twitter      string        `json:"twitter,omitempty"`
	Instagram    string        `json:"instagram,omitempty"`
	Occupation   *VKOccupation `json:"occupation,omitempty"`
	Universities []VKEducation `json:"universities,omitempty"`
	Schools      []VKEducation `json:"schools,omitempty"`
	LastSeen     *VKLastSeen   `json:"last_seen,omitempty"`
}

// VKPlace is a city or country reference. Some API versions return a
// bare string instead of the object form, so both are accepted.
type VKPlace struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func (p *VKPlace) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var title string
		if err := json.Unmarshal(data, &title); err != nil {
			return err
		}
		*p = VKPlace{Title: title}
		return nil
	}
	type plain VKPlace
	var out plain
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*p = VKPlace(out)
	return nil
}

type VKOccupation struct {
	Type     string `json:"type,omitempty"`
	Name     string `json:"name,omitempty"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
}

type VKEducation struct {
	Name string `json:"name,omitempty"`
}

type VKLastSeen struct {
	Time     int64 `json:"time"`
	Platform int   `json:"platform,omitempty"`
}
