package container

import (
	"context"
	"net/http"

	httpHandler "vkwoot/internal/adapters/http/handler"
	"vkwoot/internal/adapters/http/router"
	"vkwoot/internal/infra/integrations/chatwoot"
	"vkwoot/internal/infra/vk"
	"vkwoot/internal/services"
	"vkwoot/platform/config"
	"vkwoot/platform/logger"
)

// Container owns construction and wiring of every component. Dependencies
// flow one way: infra clients feed the bridge service, the bridge service
// feeds the HTTP handlers.
type Container struct {
	config *config.Config
	logger *logger.Logger

	vkClient   *vk.Client
	vkAdapter  *vk.Adapter
	enricher   *vk.ProfileEnricher
	chatwoot   *chatwoot.Client
	contacts   *chatwoot.ContactSync
	convs      *chatwoot.ConversationManager
	webhook    *chatwoot.WebhookHandler
	bridge     *services.BridgeService
	httpRouter http.Handler
}

func New(cfg *config.Config, appLogger *logger.Logger) *Container {
	c := &Container{
		config: cfg,
		logger: appLogger,
	}

	c.vkClient = vk.NewClient(cfg.VK, appLogger)
	c.vkAdapter = vk.NewAdapter(cfg.VK, c.vkClient, appLogger)
	c.enricher = vk.NewProfileEnricher(appLogger, c.vkClient)

	c.chatwoot = chatwoot.NewClient(
		cfg.Chatwoot.BaseURL,
		cfg.Chatwoot.APIAccessToken,
		cfg.Chatwoot.AccountID,
		appLogger,
	)
	c.contacts = chatwoot.NewContactSync(appLogger, c.chatwoot)
	c.convs = chatwoot.NewConversationManager(appLogger, c.chatwoot)
	c.webhook = chatwoot.NewWebhookHandler(appLogger, c.vkAdapter)

	c.bridge = services.NewBridgeService(
		appLogger,
		c.enricher,
		c.contacts,
		c.convs,
		c.chatwoot,
		cfg.VK.InboxID,
	)
	c.vkAdapter.OnMessage(c.bridge.HandleInbound)

	vkHandler := httpHandler.NewVKHandler(appLogger, c.vkAdapter, cfg.VK.CallbackID)
	chatwootHandler := httpHandler.NewChatwootHandler(appLogger, c.webhook, cfg.Chatwoot.WebhookID)
	c.httpRouter = router.SetupRoutes(cfg, appLogger, vkHandler, chatwootHandler)

	return c
}

// Start performs best-effort startup side effects. Webhook registration
// is skipped without PUBLIC_URL and never fails the boot.
func (c *Container) Start(ctx context.Context) {
	webhookURL := c.config.ChatwootWebhookURL()
	if webhookURL == "" {
		c.logger.Warn("PUBLIC_URL not set, skipping Chatwoot webhook registration")
		return
	}

	err := c.chatwoot.CreateWebhook(webhookURL, []string{
		"message_created",
		"conversation_status_changed",
	})
	if err != nil {
		c.logger.WarnWithFields("Chatwoot webhook registration failed", map[string]interface{}{
			"url":   webhookURL,
			"error": err.Error(),
		})
		return
	}

	c.logger.InfoWithFields("Chatwoot webhook registered", map[string]interface{}{
		"url": webhookURL,
	})
}

func (c *Container) Router() http.Handler {
	return c.httpRouter
}

func (c *Container) Logger() *logger.Logger {
	return c.logger
}
