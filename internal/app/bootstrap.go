// Package app orchestrates startup: configuration, logging, durable state,
// the execution venue, and the notification channel.
package app

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"pairs_go/internal/domain"
	"pairs_go/internal/execution"
	"pairs_go/internal/infra"
	"pairs_go/internal/infra/telegram"
	"pairs_go/internal/storage"
)

// Bootstrap assembles the long-lived components of the process.
type Bootstrap struct {
	Config   *infra.Config
	Store    *storage.PositionStore
	Journal  *storage.TradeJournal
	Venue    domain.Venue
	Notifier domain.Notifier
}

// NewBootstrap creates an empty bootstrap.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration and brings up storage, the venue, and the
// notifier in dependency order.
func (b *Bootstrap) Initialize() error {
	cfg, err := infra.LoadConfig(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg.Logging.Level))
	slog.Info("Starting pairs engine",
		slog.String("name", cfg.App.Name),
		slog.String("mode", cfg.Trading.Mode))

	store := storage.NewPositionStore(cfg.Trading.StateFile)
	if err := store.Load(); err != nil {
		return fmt.Errorf("load position state: %w", err)
	}
	b.Store = store

	journal, err := storage.NewTradeJournal(cfg.Trading.JournalFile)
	if err != nil {
		return fmt.Errorf("open trade journal: %w", err)
	}
	b.Journal = journal

	venue, err := execution.NewVenue(cfg)
	if err != nil {
		return err
	}
	b.Venue = venue

	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != "" {
		b.Notifier = telegram.NewNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		slog.Info("Telegram notifier enabled", slog.String("chat_id", cfg.Telegram.ChatID))
	} else {
		slog.Warn("Telegram not configured; alerts and commands disabled")
	}

	return nil
}

// StartPriceStream launches the websocket ticker stream for every symbol in
// the pair file. A venue without streaming support is left on REST polling.
func (b *Bootstrap) StartPriceStream(ctx context.Context) {
	streamer, ok := b.Venue.(interface {
		StartStream(ctx context.Context, symbols []string)
	})
	if !ok {
		return
	}

	pairs, err := infra.LoadPairs(b.Config.Trading.PairsFile)
	if err != nil {
		slog.Warn("Pair file unreadable; price stream not started", slog.Any("error", err))
		return
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, pair := range pairs {
		for _, sym := range []string{pair.Sym1, pair.Sym2} {
			if !seen[sym] {
				seen[sym] = true
				symbols = append(symbols, sym)
			}
		}
	}
	if len(symbols) == 0 {
		return
	}

	streamer.StartStream(ctx, symbols)
	slog.Info("Price stream started", slog.Int("symbols", len(symbols)))
}

// Shutdown releases resources in reverse order. The store needs no close:
// every mutation already persisted synchronously.
func (b *Bootstrap) Shutdown() {
	if b.Venue != nil {
		if err := b.Venue.Close(); err != nil {
			slog.Error("Venue close failed", slog.Any("error", err))
		}
	}
	if b.Journal != nil {
		if err := b.Journal.Close(); err != nil {
			slog.Error("Journal close failed", slog.Any("error", err))
		}
	}
	slog.Info("Shutdown complete")
}

// resolveConfigPath takes -config, then CONFIG_PATH, then ./config.yaml.
func resolveConfigPath() string {
	path := flag.String("config", "", "path to config file")
	flag.Parse()
	if *path != "" {
		return *path
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "config.yaml"
}
