package engine

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"pairs_go/internal/domain"
	"pairs_go/internal/infra/telegram"
	"pairs_go/internal/storage"
)

// CommandListener polls the notification channel for operator commands.
// It only ever reads store snapshots; the shutdown flag is the one piece of
// state it shares with the controller.
type CommandListener struct {
	notifier domain.Notifier
	store    *storage.PositionStore
	journal  *storage.TradeJournal
	shutdown *atomic.Bool
	interval time.Duration
	logger   *slog.Logger

	lastID int64
}

// NewCommandListener wires the poller. journal may be nil, which disables
// the trades command.
func NewCommandListener(notifier domain.Notifier, store *storage.PositionStore, journal *storage.TradeJournal, shutdown *atomic.Bool, interval time.Duration) *CommandListener {
	return &CommandListener{
		notifier: notifier,
		store:    store,
		journal:  journal,
		shutdown: shutdown,
		interval: interval,
		logger:   slog.Default().With("component", "commands"),
	}
}

// Run polls until the context is cancelled.
func (l *CommandListener) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("Command listener started", slog.Duration("interval", l.interval))
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Command listener stopping")
			return
		case <-ticker.C:
			l.poll(ctx)
		}
	}
}

func (l *CommandListener) poll(ctx context.Context) {
	cmds, err := l.notifier.PollCommands(ctx, l.lastID)
	if err != nil {
		l.logger.Warn("Command poll failed", slog.Any("error", err))
		return
	}
	for _, cmd := range cmds {
		l.lastID = cmd.ID
		l.handle(ctx, cmd)
	}
}

func (l *CommandListener) handle(ctx context.Context, cmd domain.Command) {
	switch strings.ToLower(cmd.Text) {
	case "status":
		l.reply(ctx, telegram.FormatStatus(l.openPositions()))

	case "trades":
		l.reply(ctx, l.recentTrades(ctx))

	case "abort":
		l.shutdown.Store(true)
		l.logger.Warn("Abort command received, shutdown flag set")
		l.reply(ctx, "Abort acknowledged. Stopping after the current cycle; open positions stay persisted.")

	default:
		l.reply(ctx, "Unknown command. Available: status, trades, abort")
	}
}

// openPositions returns a stable, key-ordered view of the store.
func (l *CommandListener) openPositions() []domain.Position {
	snap := l.store.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.Position, 0, len(keys))
	for _, k := range keys {
		out = append(out, snap[k])
	}
	return out
}

func (l *CommandListener) recentTrades(ctx context.Context) string {
	if l.journal == nil {
		return "Trade journal not available."
	}
	events, err := l.journal.Recent(ctx, 10)
	if err != nil {
		l.logger.Warn("Journal query failed", slog.Any("error", err))
		return "Trade journal query failed."
	}
	return telegram.FormatTradeHistory(events)
}

func (l *CommandListener) reply(ctx context.Context, text string) {
	if err := l.notifier.Notify(ctx, text); err != nil {
		l.logger.Warn("Command reply failed", slog.Any("error", err))
	}
}
