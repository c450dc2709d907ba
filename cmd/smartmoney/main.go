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

	"github.com/joho/godotenv"
	"github.com/nidhogg/smart-money/internal/api"
	"github.com/nidhogg/smart-money/internal/config"
	"github.com/nidhogg/smart-money/internal/embedding"
	"github.com/nidhogg/smart-money/internal/gateway"
	"github.com/nidhogg/smart-money/internal/provider"
	"github.com/nidhogg/smart-money/internal/rag"
	"github.com/nidhogg/smart-money/internal/router"
	"github.com/nidhogg/smart-money/internal/session"
	pgstore "github.com/nidhogg/smart-money/internal/store"
	"github.com/nidhogg/smart-money/internal/vectorstore"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/smartmoney.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "smartmoney: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "smartmoney: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("Starting Smart Money...", zap.String("config", cfgPath))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session store
	var sessions session.Store
	switch cfg.Session.Backend {
	case "redis":
		rs, err := session.NewRedisStore(cfg.Database.Redis.URL, cfg.Session.Window, logger)
		if err != nil {
			logger.Fatal("redis session store unavailable", zap.Error(err))
		}
		sessions = rs
	default:
		sessions = session.NewMemoryStore(cfg.Session.Window)
	}
	logger.Info("Session store ready", zap.String("backend", cfg.Session.Backend))

	// LLM providers
	llm := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		p, err := provider.New(provider.ProviderConfig{
			ID: pc.ID, Type: pc.Type, Name: pc.Name,
			Endpoint: pc.Endpoint, APIKey: pc.APIKey,
			Model: pc.Model, Extra: pc.Extra,
			Timeout: time.Duration(pc.TimeoutSeconds) * time.Second,
		}, logger)
		if err != nil {
			logger.Warn("skipping provider", zap.String("id", pc.ID), zap.Error(err))
			continue
		}
		llm.Register(p)
	}
	if cfg.LLM.Default != "" {
		llm.SetDefault(cfg.LLM.Default)
	}
	llm.SetFallbacks(cfg.LLM.Fallbacks)
	if len(llm.ListProviders()) == 0 {
		logger.Warn("no LLM providers configured, open questions will fail")
	}

	// Retrieval
	var searcher rag.Searcher
	index, err := vectorstore.Open(vectorstore.Config{
		Backend: cfg.Retrieval.Backend,
		Chromem: vectorstore.ChromemConfig{Path: cfg.Retrieval.Chromem.Path, Compress: cfg.Retrieval.Chromem.Compress},
		Qdrant:  vectorstore.QdrantConfig{Host: cfg.Retrieval.Qdrant.Host, Port: cfg.Retrieval.Qdrant.Port},
	})
	if err != nil {
		logger.Warn("vector index unavailable, answering without retrieval", zap.Error(err))
	}
	embedder, embErr := embedding.New(embedding.Config{
		Provider:  cfg.Embedding.Provider,
		Endpoint:  cfg.Embedding.Endpoint,
		Model:     cfg.Embedding.Model,
		APIKey:    cfg.Embedding.APIKey,
		Dimension: cfg.Embedding.Dimension,
	})
	if embErr != nil {
		logger.Warn("embedder unavailable, answering without retrieval", zap.Error(embErr))
	}
	if index != nil && embErr == nil {
		searcher = rag.NewRetriever(embedder, index, cfg.Retrieval.Collection, cfg.Retrieval.TopK, logger)
	}

	fallback := rag.NewAdapter(searcher, llm, logger)
	fallback.SetSystemPrompt(cfg.LLM.SystemPrompt)
	fallback.SetMaxTokens(cfg.LLM.MaxTokens)

	// Intent router
	assistant := router.New(sessions, fallback, router.Config{
		TaxRate:        cfg.Finance.TaxRate,
		SavingsPercent: cfg.Finance.SavingsPercent,
		DefaultHours:   cfg.Finance.DefaultHours,
	}, logger)

	// Transcript archive
	var pg *pgstore.Store
	if cfg.Database.Postgres.DSN != "" {
		ps, err := pgstore.New(ctx, cfg.Database.Postgres.DSN, logger)
		if err != nil {
			logger.Warn("PostgreSQL unavailable, running without transcripts", zap.Error(err))
		} else {
			if err := ps.Migrate(ctx, cfg.Database.Postgres.MigrationsDir); err != nil {
				logger.Fatal("migration failed", zap.Error(err))
			}
			assistant.SetArchiver(ps)
			pg = ps
		}
	}

	// Chat gateways
	gw := gateway.NewGateway(assistant, logger)
	if cfg.Gateway.Slack.Enabled && cfg.Gateway.Slack.BotToken != "" {
		gw.Register(gateway.NewSlackAdapter(cfg.Gateway.Slack.BotToken, cfg.Gateway.Slack.AppToken, logger))
	}
	if cfg.Gateway.Discord.Enabled && cfg.Gateway.Discord.BotToken != "" {
		gw.Register(gateway.NewDiscordAdapter(cfg.Gateway.Discord.BotToken, logger))
	}
	if err := gw.ConnectAll(ctx); err != nil {
		logger.Warn("some gateway adapters failed to connect", zap.Error(err))
	}

	// HTTP server
	cookies := api.NewCookies(cfg.Server.CookieName, cfg.Server.SessionSecret)
	cookies.SetSecure(cfg.Server.SecureCookies)
	if cfg.Server.SessionSecret == "" {
		logger.Warn("server.session_secret not set, sessions will not survive a restart")
	}
	handler := api.NewHandler(assistant, sessions, cookies, logger)
	handler.SetCORSOrigins(cfg.Server.CORSOrigins)
	handler.SetGateway(gw)
	if len(llm.ListProviders()) > 0 {
		handler.AddHealthCheck("llm", llm.HealthCheck)
	}
	if pg != nil {
		handler.SetStats(pg)
		handler.AddHealthCheck("postgres", pg.Ping)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Smart Money listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down Smart Money...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	gw.Close()
	if err := sessions.Close(); err != nil {
		logger.Warn("session store close", zap.Error(err))
	}
	if index != nil {
		index.Close()
	}
	if pg != nil {
		pg.Close()
	}
}
