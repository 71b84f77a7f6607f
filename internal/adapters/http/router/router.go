package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"vkwoot/internal/adapters/http/handler"
	"vkwoot/internal/adapters/http/middleware"
	"vkwoot/platform/config"
	"vkwoot/platform/logger"
)

// SetupRoutes wires the HTTP surface: the VK callback endpoint, the
// Chatwoot webhook endpoint and the health probes.
func SetupRoutes(cfg *config.Config, appLogger *logger.Logger, vkHandler *handler.VKHandler, chatwootHandler *handler.ChatwootHandler) http.Handler {
	r := chi.NewRouter()

	setupMiddlewares(r, appLogger)
	setupHealthRoutes(r, cfg)

	r.Post("/vk/callback/{callbackID}", vkHandler.HandleCallback)
	r.Post("/chatwoot/webhook/{webhookID}", chatwootHandler.HandleWebhook)

	return r
}

func setupMiddlewares(r *chi.Mux, appLogger *logger.Logger) {
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.HTTPLogger(appLogger))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func setupHealthRoutes(r *chi.Mux, cfg *config.Config) {
	startedAt := time.Now()

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"uptime": time.Since(startedAt).Round(time.Second).String(),
		})
	})

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"service":     "vkwoot",
			"description": "VK to Chatwoot bridge",
			"environment": cfg.Environment,
		})
	})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
