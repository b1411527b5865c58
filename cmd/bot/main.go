package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xaenox/vibe-tracker/internal/analyzer"
	"github.com/xaenox/vibe-tracker/internal/bot"
	"github.com/xaenox/vibe-tracker/internal/logger"
	"github.com/xaenox/vibe-tracker/internal/metrics"
	"github.com/xaenox/vibe-tracker/internal/router"
	"github.com/xaenox/vibe-tracker/internal/state"
	"github.com/xaenox/vibe-tracker/internal/storage"
	"github.com/xaenox/vibe-tracker/pkg/config"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		log.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		log.Info("Using PostgreSQL storage", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
		store, err = storage.NewPostgresStorage(ctx, storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize conversation state
	var states state.Store
	switch cfg.State.Backend {
	case config.StateBackendRedis:
		log.Info("Using Redis conversation state")
		redisStore, err := state.NewRedisStore(ctx, cfg.State.RedisURL, cfg.State.TTL)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisStore.Close()
		states = redisStore
	default:
		log.Info("Using in-memory conversation state", zap.Duration("ttl", cfg.State.TTL))
		states = state.NewMemoryStore(cfg.State.TTL)
	}

	// Initialize analyzer
	an := analyzer.NewGPTAnalyzer(analyzer.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Temperature: cfg.OpenAI.Temperature,
		Timeout:     cfg.OpenAI.Timeout,
	}, log)

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, cfg.Telegram.Debug, cfg.Telegram.PollTimeout, log)
	if err != nil {
		log.Fatal("Failed to create bot", zap.Error(err))
	}

	r := router.New(store, state.NewMachine(states), an, b, m, router.Config{
		PageSize:           cfg.History.PageSize,
		SynopsisLength:     cfg.History.SynopsisLength,
		DefaultInstruction: cfg.Analysis.DefaultInstruction,
	}, log)

	// Start the bot
	log.Info("Bot started")
	if err := b.Start(ctx, r); err != nil {
		log.Error("Bot error", zap.Error(err))
	}
	log.Info("Bot stopped")
}

func serveMetrics(addr string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
