package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daytrader/internal/api"
	"daytrader/internal/engine"
	"daytrader/internal/eod"
	"daytrader/internal/gateway"
	"daytrader/internal/ledger"
	"daytrader/internal/logger"
	"daytrader/internal/trace"
)

func main() {
	if err := initializeSystem(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		log.Fatal(err)
	}

	compressOldLogs(ctx)

	src := initializeSource(ctx, cfg)
	gw := initializeGateway(ctx, cfg)

	// A failed login leaves the engine idle; quotes still refresh so the
	// operator can re-authenticate and start trading without a restart.
	authed := true
	if err := gw.Authenticate(ctx); err != nil {
		var authErr *gateway.AuthError
		if errors.As(err, &authErr) {
			logger.Warn(ctx, "Authentication failed, engine stays idle", "reason", authErr.Reason)
		} else {
			logger.ErrorWithErr(ctx, "Gateway unreachable, engine stays idle", err)
		}
		authed = false
	}

	// A LIVE account whose figures cannot be fetched seeds at zero, keeping
	// the margin gate shut until the first successful equity refresh.
	var cash float64
	if cfg.Mode == "DRY_RUN" {
		cash = cfg.Sim.StartingCash
	}
	if sum, err := gw.Portfolio(ctx); err == nil {
		cash = sum.WithdrawableCash
	}

	book := ledger.New(cash, cfg.Margin.Minimum, cfg.Margin.Buffer, gw)
	eng := engine.New(cfg, src, gw, book)

	for _, sym := range loadWatchlist(ctx, cfg) {
		if err := eng.AddSymbol(ctx, sym); err != nil {
			logger.Warn(ctx, "Failed to restore watchlist symbol", "symbol", sym, "error", err)
		}
	}

	if authed {
		eng.SetTrading(ctx, true)
	}

	go eng.Run(ctx)

	ctl := api.New(cfg.ControlAddr, eng)
	go func() {
		if err := ctl.Start(ctx); err != nil {
			logger.ErrorWithErr(ctx, "Control server failed", err)
		}
	}()

	eodTick := time.NewTicker(60 * time.Second)
	defer eodTick.Stop()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	logger.Info(ctx, "Trader started", "mode", cfg.Mode, "poll_seconds", cfg.PollSeconds)
	for {
		select {
		case <-eodTick.C:
			if ok, _ := eod.ShouldRunNow(); ok {
				if p, err := eod.SummarizeToday(); err == nil && p != "" {
					logger.Info(ctx, "EOD CSV written", "path", p)
				}
			}
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			cancel()
			_ = ctl.Shutdown(context.Background())
			eng.SaveState(context.Background())
			if p, err := eod.SummarizeToday(); err == nil && p != "" {
				logger.Info(context.Background(), "EOD CSV written", "path", p)
			}
			_ = trace.Shutdown(context.Background())
			return
		case <-ctx.Done():
			return
		}
	}
}
