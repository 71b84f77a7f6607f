package vk

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vkwoot/internal/ports"
	"vkwoot/platform/config"
	"vkwoot/platform/logger"
)

// profileFields is the users.get field set requested for enrichment.
var profileFields = strings.Join([]string{
	"photo_50", "photo_100", "photo_200_orig", "photo_max",
	"online", "online_mobile", "verified",
	"sex", "bdate", "city", "country",
	"home_town", "screen_name",
	"has_photo", "has_mobile",
	"status",
	"last_seen",
	"relation",
	"universities", "schools",
	"occupation",
	"site", "facebook", "twitter", "instagram",
	"timezone",
}, ",")

// APIError is an application-level VK API error. VK reports these in
// the response envelope even on HTTP 200.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("VK API error %d: %s", e.Code, e.Message)
}

// Client dispatches VK API methods over the query-string transport.
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	baseURL     string
	accessToken string
	apiVersion  string
	groupID     int
}

// NewClient creates a new VK API client.
func NewClient(cfg config.VKConfig, logger *logger.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.APIBaseURL, "/"),
		accessToken: cfg.AccessToken,
		apiVersion:  cfg.APIVersion,
		groupID:     cfg.GroupID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SendMessage delivers a text message to a peer. randomID is the
// per-message correlation id VK uses to deduplicate client retries.
func (c *Client) SendMessage(peerID, text string, randomID int32) (int, error) {
	params := url.Values{}
	params.Set("peer_id", peerID)
	params.Set("message", text)
	params.Set("random_id", fmt.Sprintf("%d", randomID))
	params.Set("group_id", fmt.Sprintf("%d", c.groupID))

	var messageID int
	if err := c.callMethod(http.MethodPost, "messages.send", params, &messageID); err != nil {
		return 0, err
	}
	return messageID, nil
}

// GetUserProfile fetches one user's public profile fields.
func (c *Client) GetUserProfile(userID string) (*ports.VKUserProfile, error) {
	params := url.Values{}
	params.Set("user_ids", userID)
	params.Set("fields", profileFields)

	var profiles []ports.VKUserProfile
	if err := c.callMethod(http.MethodGet, "users.get", params, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("users.get returned no profile for %s", userID)
	}
	return &profiles[0], nil
}

// callMethod issues one request against the method-dispatch endpoint.
// The {response, error} envelope must be checked even on HTTP 200.
func (c *Client) callMethod(httpMethod, apiMethod string, params url.Values, result interface{}) error {
	params.Set("access_token", c.accessToken)
	params.Set("v", c.apiVersion)

	requestURL := fmt.Sprintf("%s/method/%s?%s", c.baseURL, apiMethod, params.Encode())
	req, err := http.NewRequest(httpMethod, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", apiMethod, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s failed with status %d: %s", apiMethod, resp.StatusCode, string(bodyBytes))
	}

	var envelope struct {
		Response json.RawMessage `json:"response"`
		Error    *APIError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", apiMethod, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}

	if result != nil && len(envelope.Response) > 0 {
		if err := json.Unmarshal(envelope.Response, result); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", apiMethod, err)
		}
	}
	return nil
}
