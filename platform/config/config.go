package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is loaded once at startup and treated as immutable for the
// lifetime of the process.
type Config struct {
	Environment string
	Server      ServerConfig
	Log         LogConfig
	VK          VKConfig
	Chatwoot    ChatwootConfig
}

type ServerConfig struct {
	Port         int    `validate:"required,min=1,max=65535"`
	Host         string `validate:"required"`
	PublicURL    string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type LogConfig struct {
	Level  string
	Format string
	Output string
	Caller bool
}

// VKConfig holds the VK Callback API binding for a single group.
type VKConfig struct {
	CallbackID   string `validate:"required"`
	GroupID      int    `validate:"required"`
	AccessToken  string `validate:"required"`
	Secret       string `validate:"required"`
	Confirmation string `validate:"required"`
	APIVersion   string `validate:"required"`
	APIBaseURL   string `validate:"required,url"`
	InboxID      int    `validate:"required"`
}

type ChatwootConfig struct {
	BaseURL        string `validate:"required,url"`
	APIAccessToken string `validate:"required"`
	AccountID      int    `validate:"required"`
	WebhookID      string `validate:"required"`
}

// Load reads .env (when present) and the environment, then validates
// that all required credentials and identifiers are set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvInt("PORT", 8080),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			PublicURL:    getEnv("PUBLIC_URL", ""),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 120),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
			Caller: getEnvBool("LOG_CALLER", false),
		},
		VK: VKConfig{
			CallbackID:   getEnv("VK_CALLBACK_ID", ""),
			GroupID:      getEnvInt("VK_GROUP_ID", 0),
			AccessToken:  getEnv("VK_ACCESS_TOKEN", ""),
			Secret:       getEnv("VK_SECRET", ""),
			Confirmation: getEnv("VK_CONFIRMATION", ""),
			APIVersion:   getEnv("VK_API_VERSION", "5.199"),
			APIBaseURL:   getEnv("VK_API_BASE_URL", "https://api.vk.com"),
			InboxID:      getEnvInt("VK_INBOX_ID", 0),
		},
		Chatwoot: ChatwootConfig{
			BaseURL:        getEnv("CHATWOOT_BASE_URL", ""),
			APIAccessToken: getEnv("CHATWOOT_API_ACCESS_TOKEN", ""),
			AccountID:      getEnvInt("CHATWOOT_ACCOUNT_ID", 0),
			WebhookID:      getEnv("CHATWOOT_WEBHOOK_ID", ""),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// VKCallbackPath is the inbound route VK posts callback events to.
func (c *Config) VKCallbackPath() string {
	return "/vk/callback/" + c.VK.CallbackID
}

// ChatwootWebhookPath is the inbound route Chatwoot posts agent events to.
func (c *Config) ChatwootWebhookPath() string {
	return "/chatwoot/webhook/" + c.Chatwoot.WebhookID
}

// ChatwootWebhookURL is the absolute webhook URL registered in Chatwoot.
// Empty when PUBLIC_URL is not configured.
func (c *Config) ChatwootWebhookURL() string {
	if c.Server.PublicURL == "" {
		return ""
	}
	return c.Server.PublicURL + c.ChatwootWebhookPath()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
