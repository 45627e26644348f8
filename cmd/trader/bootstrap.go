package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"daytrader/internal/gateway"
	"daytrader/internal/gateway/gatewayobs"
	"daytrader/internal/interfaces"
	"daytrader/internal/logger"
	"daytrader/internal/quote"
	"daytrader/internal/store"
	"daytrader/internal/trace"
	"daytrader/internal/tradelog"

	"github.com/joho/godotenv"
)

// initializeSystem initializes environment, logger and tracer.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads and returns the configuration.
func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig("config.yaml")
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// loadWatchlist restores the persisted watchlist. A corrupt snapshot is
// recovered by starting empty.
func loadWatchlist(ctx context.Context, cfg *store.Config) []string {
	st, err := store.LoadState(cfg.StatePath)
	if err != nil {
		if errors.Is(err, store.ErrCorrupt) {
			logger.Warn(ctx, "State snapshot corrupt, starting with empty watchlist", "path", cfg.StatePath)
			return nil
		}
		logger.Warn(ctx, "Failed to load state snapshot", "path", cfg.StatePath, "error", err)
		return nil
	}
	return st.Watchlist
}

// compressOldLogs compresses old trade journal files if retention is configured.
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := tradelog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// initializeSource returns the configured quote source.
func initializeSource(ctx context.Context, cfg *store.Config) interfaces.QuoteSource {
	if cfg.Quote.Source == "SCRAPE" {
		logger.Info(ctx, "Using LIVE scraped quotes", "base_url", cfg.Quote.BaseURL)
		return quote.NewScrapeSource(cfg.Quote.BaseURL, time.Duration(cfg.Quote.TimeoutMS)*time.Millisecond)
	}
	logger.Info(ctx, "Using STATIC simulated quotes")
	return quote.NewStaticSource(time.Now().UnixNano())
}

// initializeGateway returns the brokerage gateway wrapped with observability
// middleware.
func initializeGateway(ctx context.Context, cfg *store.Config) interfaces.Gateway {
	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
		return gatewayobs.Wrap(gateway.NewSim(cfg.Sim.StartingCash))
	}

	gw := gateway.NewAlpaca(gateway.Params{
		APIKey:    os.Getenv("APCA_API_KEY_ID"),
		APISecret: os.Getenv("APCA_API_SECRET_KEY"),
		BaseURL:   os.Getenv("APCA_API_BASE_URL"),
	})
	return gatewayobs.Wrap(gw)
}
