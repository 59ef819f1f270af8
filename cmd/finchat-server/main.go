package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/NutanNimkar/FinChat/internal/assistant"
	"github.com/NutanNimkar/FinChat/internal/config"
	"github.com/NutanNimkar/FinChat/internal/db"
	"github.com/NutanNimkar/FinChat/internal/finance"
	"github.com/NutanNimkar/FinChat/internal/fmp"
	"github.com/NutanNimkar/FinChat/internal/logger"
	"github.com/NutanNimkar/FinChat/internal/metrics"
	"github.com/NutanNimkar/FinChat/internal/pipeline"
	"github.com/NutanNimkar/FinChat/internal/server"
	"github.com/NutanNimkar/FinChat/internal/store"
)

const cachePurgeInterval = time.Hour

func main() {
	cfg := config.Load()
	lg := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer lg.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := metrics.New()

	cache, database, err := openCache(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("failed to open provider cache", zap.String("backend", cfg.CacheBackend), zap.Error(err))
	}
	if database != nil {
		defer database.Close()
	}

	client := fmp.NewClient(cfg.FMPAPIKey,
		fmp.WithBaseURL(cfg.FMPBaseURL),
		fmp.WithHTTPClient(&http.Client{Timeout: cfg.FMPTimeout}),
		fmp.WithRateLimit(cfg.FMPRateLimit),
		fmp.WithLogger(lg.Named("fmp")),
		fmp.WithMetrics(rec),
	)
	provider := fmp.NewCachedClient(client, cache, cfg.CacheTTL, cfg.CacheEmptyTTL, lg.Named("cache"))

	prompts, err := assistant.LoadPromptSpec(cfg.PromptsFile)
	if err != nil {
		lg.Fatal("failed to load prompt spec", zap.String("path", cfg.PromptsFile), zap.Error(err))
	}
	llm := newCompleter(cfg)
	extractor, err := assistant.NewExtractor(llm, prompts, lg.Named("intent"), rec)
	if err != nil {
		lg.Fatal("failed to build intent extractor", zap.Error(err))
	}
	synthesizer := assistant.NewSynthesizer(llm, prompts, lg.Named("summary"))

	resolver := finance.NewResolver(provider, lg.Named("resolver"))
	locator := finance.NewLocator(provider, time.Now, lg.Named("transcripts"), rec)
	metricLookup := finance.NewMetricLookup(provider, lg.Named("metrics"))

	orchestrator := pipeline.New(extractor, resolver, locator, metricLookup, synthesizer,
		pipeline.WithConcurrency(cfg.SummaryConcurrency),
		pipeline.WithLogger(lg.Named("pipeline")),
		pipeline.WithMetrics(rec),
	)

	s := server.NewServer(cfg, server.Deps{
		Pipeline: orchestrator,
		Resolver: resolver,
		Locator:  locator,
		Metrics:  metricLookup,
		Recorder: rec,
		Database: database,
	}, lg.Named("http"))

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()
	lg.Info("FinChat server listening",
		zap.String("addr", httpServer.Addr),
		zap.String("llm", cfg.LLMProvider),
		zap.String("cache", cfg.CacheBackend))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		lg.Info("shutting down", zap.Stringer("signal", sig))
		cancel()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			lg.Error("graceful shutdown failed", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(fmt.Errorf("server error: %w", err))
		}
	}
}

func newCompleter(cfg config.Config) assistant.Completer {
	if cfg.LLMProvider == "anthropic" {
		return assistant.NewAnthropicCompleter(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.LLMTimeout, option.WithMaxRetries(2))
	}
	return assistant.NewOpenAICompleter(openai.NewClient(cfg.OpenAIAPIKey), cfg.Model, cfg.LLMTimeout)
}

// openCache builds the provider cache named by CACHE_BACKEND. The returned
// *db.DB is non-nil only for the postgres backend.
func openCache(ctx context.Context, cfg config.Config, lg *zap.Logger) (store.Cache, *db.DB, error) {
	switch cfg.CacheBackend {
	case "none", "off":
		lg.Info("provider cache disabled")
		return store.NopCache{}, nil, nil
	case "redis":
		client, err := store.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		lg.Info("using redis provider cache", zap.String("addr", cfg.RedisAddr))
		return store.NewRedisCache(client, "finchat:"), nil, nil
	case "postgres":
		database, err := db.New(cfg.DatabaseURL, lg.Named("db"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := database.Migrate(); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		lg.Info("database migrations completed")
		cache := store.NewDatabaseCache(database)
		go purgeExpired(ctx, cache, lg.Named("db"))
		return cache, database, nil
	default:
		return store.NewMemoryCache(cfg.CacheTTL), nil, nil
	}
}

func purgeExpired(ctx context.Context, cache *store.DatabaseCache, lg *zap.Logger) {
	ticker := time.NewTicker(cachePurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := cache.Purge(ctx)
			if err != nil {
				lg.Warn("cache purge failed", zap.Error(err))
				continue
			}
			lg.Debug("purged expired cache entries", zap.Int64("rows", n))
		}
	}
}
