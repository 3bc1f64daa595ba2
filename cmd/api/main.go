// Package main is the entry point for the chat gateway.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	chromem "github.com/philippgille/chromem-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/justsum66/cheersin-gateway/internal/cache"
	"github.com/justsum66/cheersin-gateway/internal/config"
	"github.com/justsum66/cheersin-gateway/internal/dispatch"
	"github.com/justsum66/cheersin-gateway/internal/handler"
	"github.com/justsum66/cheersin-gateway/internal/llm"
	"github.com/justsum66/cheersin-gateway/internal/middleware"
	natsclient "github.com/justsum66/cheersin-gateway/internal/nats"
	"github.com/justsum66/cheersin-gateway/internal/rag"
	"github.com/justsum66/cheersin-gateway/internal/ratelimit"
	"github.com/justsum66/cheersin-gateway/internal/telemetry"
	"github.com/justsum66/cheersin-gateway/pkg/logger"
	"github.com/justsum66/cheersin-gateway/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting chat gateway")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "cheersin-gateway", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Telemetry and history persistence are write-only collaborators; a chat
	// reply never depends on them, so a missing NATS just downgrades to no-ops.
	var recorder telemetry.Recorder = telemetry.NopRecorder{}
	var history telemetry.HistoryWriter = telemetry.NopHistory{}
	var nc *natsclient.Client
	if cfg.NATSURL != "" {
		nc, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect to NATS, telemetry disabled", zap.Error(err))
		} else {
			defer nc.Close()
			if err := nc.EnsureStream(ctx); err != nil {
				log.Warn("failed to ensure observations stream", zap.Error(err))
			}
			streamRecorder := telemetry.NewStreamRecorder(nc, log)
			recorder = streamRecorder
			history = streamRecorder
		}
	}

	// Retrieval augmentation degrades to nothing when the store can't open.
	var retriever rag.Retriever
	if cfg.EmbeddingAPIKey != "" {
		embedFn := chromem.NewEmbeddingFuncOpenAICompat(
			cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, nil,
		)
		store, err := rag.NewVectorStore(cfg.DataDir, embedFn)
		if err != nil {
			log.Warn("failed to open vector store, augmentation disabled", zap.Error(err))
		} else {
			retriever = store
			seedPath := filepath.Join(cfg.DataDir, "knowledge.ndjson")
			if n, err := rag.SeedFromFile(ctx, store, seedPath, log); err != nil {
				log.Warn("knowledge seeding failed", zap.Error(err))
			} else if n > 0 {
				log.Info("seeded wine knowledge", zap.Int("snippets", n))
			}
		}
	}
	enricher := rag.NewEnricher(retriever, log)

	// Provider chain in fixed fallback order.
	var chain []llm.Client
	if cfg.OpenAIAPIKey != "" {
		if c, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel); err == nil {
			chain = append(chain, c)
		}
	}
	if cfg.AnthropicAPIKey != "" {
		if c, err := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel); err == nil {
			chain = append(chain, c)
		}
	}
	if cfg.GroqAPIKey != "" {
		if c, err := llm.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel, cfg.GroqBaseURL); err == nil {
			chain = append(chain, c)
		}
	}
	if len(chain) == 0 {
		log.Warn("no providers configured, every reply will be an offline fallback")
	}

	dispatcher := dispatch.New(chain, recorder, log, dispatch.Options{
		PrimaryRetries: cfg.PrimaryRetries,
		MaxTokens:      cfg.MaxTokens,
		Temperature:    0.7,
	})

	respCache := cache.New(cfg.CacheTTL, cfg.CacheCapacity)
	limiter := ratelimit.New(cfg.RateLimitWindow)

	chatHandler := handler.NewChatHandler(dispatcher, enricher, respCache, limiter, history, log, handler.Options{
		Limits: handler.Limits{
			MaxTurns:          cfg.MaxTurns,
			MaxTurnChars:      cfg.MaxTurnChars,
			MaxImageBytes:     cfg.MaxImageBytes,
			MaxSanitizedChars: cfg.MaxPromptLen,
		},
		BaseLimit:         cfg.RateLimitBase,
		PremiumMultiplier: cfg.RateLimitPremiumX,
		DispatchTimeout:   cfg.DispatchTimeout,
	})
	healthHandler := handler.NewHealthHandler(nc)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.IPRateLimit, cfg.RateLimitWindow))

		r.Post("/chat", chatHandler.Chat)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
