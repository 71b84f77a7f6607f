package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("VK_CALLBACK_ID", "cb1")
	t.Setenv("VK_GROUP_ID", "111")
	t.Setenv("VK_ACCESS_TOKEN", "vk-token")
	t.Setenv("VK_SECRET", "s1")
	t.Setenv("VK_CONFIRMATION", "abc123")
	t.Setenv("VK_INBOX_ID", "7")
	t.Setenv("CHATWOOT_BASE_URL", "https://desk.example.com")
	t.Setenv("CHATWOOT_API_ACCESS_TOKEN", "cw-token")
	t.Setenv("CHATWOOT_ACCOUNT_ID", "3")
	t.Setenv("CHATWOOT_WEBHOOK_ID", "wh1")
}

func TestLoadWithDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddress())
	assert.Equal(t, "5.199", cfg.VK.APIVersion)
	assert.Equal(t, "https://api.vk.com", cfg.VK.APIBaseURL)
	assert.Equal(t, 111, cfg.VK.GroupID)
	assert.Equal(t, 7, cfg.VK.InboxID)
}

func TestLoadFailsWithoutCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VK_ACCESS_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
}

func TestRoutePaths(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/vk/callback/cb1", cfg.VKCallbackPath())
	assert.Equal(t, "/chatwoot/webhook/wh1", cfg.ChatwootWebhookPath())
}

func TestChatwootWebhookURL(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.ChatwootWebhookURL(), "no PUBLIC_URL means no registration target")

	t.Setenv("PUBLIC_URL", "https://bridge.example.com")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "https://bridge.example.com/chatwoot/webhook/wh1", cfg.ChatwootWebhookURL())
}
