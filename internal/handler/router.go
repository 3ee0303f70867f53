package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cyberguard/assistant/internal/analyzer"
	"github.com/cyberguard/assistant/internal/middleware"
	natsclient "github.com/cyberguard/assistant/internal/nats"
	"github.com/cyberguard/assistant/internal/service"
	"github.com/cyberguard/assistant/pkg/logger"
)

// RouterConfig holds what the router needs to build its handlers.
type RouterConfig struct {
	Sessions          *service.Sessions
	Analyzers         analyzer.Set
	EmailAnalyzer     analyzer.EmailAnalyzer
	NATS              *natsclient.Client
	Logger            *logger.Logger
	JWTSecret         string
	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	HeartbeatInterval time.Duration
}

// NewRouter builds the HTTP routes of the API server.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger

	healthHandler := NewHealthHandler(cfg.NATS, cfg.Sessions)
	conversationHandler := NewConversationHandler(cfg.Sessions, log)
	messageHandler := NewMessageHandler(cfg.Sessions, log)
	streamHandler := NewStreamHandler(cfg.Sessions, log, cfg.HeartbeatInterval)
	scanHandler := NewScanHandler(cfg.Analyzers, cfg.EmailAnalyzer, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/suggestions", messageHandler.Suggestions)
		r.Post("/scans", scanHandler.Scan)
		r.Post("/phishing", scanHandler.Phishing)

		// Conversations
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)
			r.Get("/current", conversationHandler.Current)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Put("/", conversationHandler.Rename)
				r.Delete("/", conversationHandler.Delete)
				r.Post("/select", conversationHandler.Select)

				// Messages
				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Send)
				r.Post("/regenerate", messageHandler.Regenerate)
				r.Get("/export", messageHandler.Export)

				// Streaming
				r.Get("/stream", streamHandler.Stream)
			})
		})
	})

	return r
}
