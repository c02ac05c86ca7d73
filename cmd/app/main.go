package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"pairs_go/internal/app"
	"pairs_go/internal/engine"
	"pairs_go/internal/metrics"
)

func main() {
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap.StartPriceStream(ctx)

	cfg := bootstrap.Config
	if cfg.App.MetricsAddr != "" {
		go metrics.Serve(ctx, cfg.App.MetricsAddr)
	}

	// Shared stop flag: the abort command sets it, the controller reads it
	// between cycles. Everything else communicates through the store.
	var shutdown atomic.Bool

	controller := engine.NewController(cfg, bootstrap.Store, bootstrap.Journal,
		bootstrap.Venue, bootstrap.Notifier, &shutdown)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		controller.Run(ctx)
		// A controller stopped by the abort command should take the rest of
		// the process down with it.
		stop()
	}()

	if bootstrap.Notifier != nil {
		listener := engine.NewCommandListener(bootstrap.Notifier, bootstrap.Store,
			bootstrap.Journal, &shutdown, time.Duration(cfg.Telegram.PollIntervalSec)*time.Second)
		wg.Add(1)
		go func() {
			defer wg.Done()
			listener.Run(ctx)
		}()
	}

	<-ctx.Done()
	slog.Info("Shutdown signal received, waiting for current cycle")
	shutdown.Store(true)
	wg.Wait()
}
