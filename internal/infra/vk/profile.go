package vk

import (
	"strings"
	"time"

	"vkwoot/internal/ports"
	"vkwoot/platform/logger"
)

// VK encodes sex and relationship status as small integers.
var sexNames = map[int]string{
	1: "female",
	2: "male",
}

var relationNames = map[int]string{
	1: "single",
	2: "in a relationship",
	3: "engaged",
	4: "married",
	5: "it's complicated",
	6: "actively searching",
	7: "in love",
	8: "in a civil union",
}

// ProfileEnricher projects VK public profiles into contact attribute
// bags. Matchable fields land in the custom bag, display-only fields in
// the additional bag.
type ProfileEnricher struct {
	logger *logger.Logger
	client *Client
}

func NewProfileEnricher(logger *logger.Logger, client *Client) *ProfileEnricher {
	return &ProfileEnricher{
		logger: logger,
		client: client,
	}
}

// Enrich fetches the user's profile, best effort. Any failure yields a
// profile carrying only the user id; enrichment never blocks ingestion.
func (e *ProfileEnricher) Enrich(userID string) ports.EnrichedProfile {
	custom := ports.Attributes{
		ports.AttrVKUserID: ports.StringAttr(userID),
	}
	additional := ports.Attributes{}

	profile, err := e.client.GetUserProfile(userID)
	if err != nil {
		e.logger.WarnWithFields("Profile fetch failed, continuing without enrichment", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return ports.EnrichedProfile{Name: userID, Custom: custom, Additional: additional}
	}

	if bdate := strings.TrimSpace(profile.Bdate); bdate != "" {
		custom[ports.AttrVKBdate] = ports.StringAttr(bdate)
	}

	setString := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			additional[key] = ports.StringAttr(value)
		}
	}

	if profile.City != nil {
		setString("city", profile.City.Title)
	}
	if profile.Country != nil {
		setString("country", profile.Country.Title)
	}
	setString("home_town", profile.HomeTown)
	setString("screen_name", profile.ScreenName)
	setString("status", profile.Status)
	setString("photo", pickPhoto(profile))
	setString("site", profile.Site)
	setString("facebook", profile.Facebook)
	setString("twitter", profile.Twitter)
	setString("instagram", profile.Instagram)
	setString("sex", sexNames[profile.Sex])
	setString("relation", relationNames[profile.Relation])
	setString("occupation", occupationName(profile.Occupation))
	setString("university", educationNames(profile.Universities))
	setString("school", educationNames(profile.Schools))

	if profile.LastSeen != nil && profile.LastSeen.Time > 0 {
		additional["last_seen_at"] = ports.StringAttr(
			time.Unix(profile.LastSeen.Time, 0).UTC().Format(time.RFC3339))
	}
	if profile.Timezone != nil {
		additional["timezone"] = ports.NumberAttr(float64(*profile.Timezone))
	}
	if profile.Verified != 0 {
		additional["verified"] = ports.BoolAttr(true)
	}
	additional["online"] = ports.BoolAttr(profile.Online != 0)

	name := formatName(profile, userID)
	return ports.EnrichedProfile{Name: name, Custom: custom, Additional: additional}
}

func formatName(profile *ports.VKUserProfile, fallback string) string {
	name := strings.TrimSpace(strings.TrimSpace(profile.FirstName) + " " + strings.TrimSpace(profile.LastName))
	if name != "" {
		return name
	}
	if screenName := strings.TrimSpace(profile.ScreenName); screenName != "" {
		return screenName
	}
	return fallback
}

func pickPhoto(profile *ports.VKUserProfile) string {
	for _, photo := range []string{profile.PhotoMax, profile.Photo200Orig, profile.Photo100, profile.Photo50} {
		if photo != "" {
			return photo
		}
	}
	return ""
}

func occupationName(occupation *ports.VKOccupation) string {
	if occupation == nil {
		return ""
	}
	if occupation.Name != "" {
		return occupation.Name
	}
	if occupation.Company != "" {
		if occupation.Position != "" {
			return occupation.Company + ", " + occupation.Position
		}
		return occupation.Company
	}
	return ""
}

func educationNames(entries []ports.VKEducation) string {
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if name := strings.TrimSpace(entry.Name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}
