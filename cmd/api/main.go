// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cyberguard/assistant/internal/analyzer"
	"github.com/cyberguard/assistant/internal/config"
	"github.com/cyberguard/assistant/internal/handler"
	"github.com/cyberguard/assistant/internal/llm"
	natsclient "github.com/cyberguard/assistant/internal/nats"
	"github.com/cyberguard/assistant/internal/service"
	"github.com/cyberguard/assistant/pkg/logger"
	"github.com/cyberguard/assistant/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var log *logger.Logger
	if cfg.IsDevelopment() {
		log, err = logger.NewDevelopment()
	} else {
		log, err = logger.New(cfg.LogLevel)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server", zap.String("env", cfg.Env))

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "cyberguard-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Notifications always go to the log, and to NATS when configured
	notifiers := service.MultiNotifier{service.NewLogNotifier(log)}

	var natsClient *natsclient.Client
	if cfg.NATSEnabled() {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			Name:     "cyberguard-assistant",
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		if err := natsClient.EnsureStream(ctx, cfg.NotificationMaxAge); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}

		notifiers = append(notifiers, natsclient.NewNotifier(natsClient.JetStream(), log))
	}

	// Reply generator: the configured LLM with canned replies as fallback
	var generator llm.Generator = llm.NewCannedGenerator()
	if provider := llm.Provider(cfg.LLMProvider); provider != llm.ProviderCanned {
		apiKey := cfg.AnthropicAPIKey
		if provider == llm.ProviderOpenAI {
			apiKey = cfg.OpenAIAPIKey
		}

		client, err := llm.NewClient(provider, apiKey)
		if err != nil {
			log.Warn("failed to create LLM client, using canned replies",
				zap.String("provider", cfg.LLMProvider),
				zap.Error(err),
			)
		} else {
			generator = &llm.FallbackGenerator{
				Primary:  llm.NewClientGenerator(client, cfg.LLMModel, cfg.LLMMaxTokens, cfg.ReplyTimeout),
				Fallback: generator,
				Logger:   log,
			}
		}
	}

	sessions := service.NewSessions(service.Config{
		Generator:      generator,
		Notifier:       notifiers,
		Logger:         log,
		TokenDelay:     cfg.StreamTokenDelay,
		TitleMaxLength: cfg.TitleMaxLength,
	})

	analyzers := analyzer.NewSet(
		analyzer.QuickCheck{Delay: cfg.QuickScanDelay},
		analyzer.FullCheck{Delay: cfg.FullScanDelay},
	)

	router := handler.NewRouter(handler.RouterConfig{
		Sessions:          sessions,
		Analyzers:         analyzers,
		EmailAnalyzer:     analyzer.PhishingCheck{Delay: cfg.PhishingDelay},
		NATS:              natsClient,
		Logger:            log,
		JWTSecret:         cfg.JWTSecret,
		AllowedOrigins:    cfg.AllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})

	// Create HTTP server. WriteTimeout stays at zero by default so event
	// streams are not cut off.
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Cancel replies first so open event streams see their
	// subscriptions close and return.
	sessions.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
