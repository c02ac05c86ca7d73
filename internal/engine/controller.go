// Package engine runs the position lifecycle: one controller goroutine that
// owns every store mutation, plus a command listener for operator control.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"pairs_go/internal/domain"
	"pairs_go/internal/execution"
	"pairs_go/internal/infra"
	"pairs_go/internal/infra/telegram"
	"pairs_go/internal/metrics"
	"pairs_go/internal/signal"
	"pairs_go/internal/storage"
	"pairs_go/pkg/quant"
)

// Controller drives the periodic trading cycle. It is the only writer to the
// position store; the saga reports outcomes and the controller applies them.
type Controller struct {
	cfg      *infra.Config
	store    *storage.PositionStore
	journal  *storage.TradeJournal
	venue    domain.Venue
	saga     *execution.Saga
	notifier domain.Notifier
	shutdown *atomic.Bool
	logger   *slog.Logger

	// loadPairs is swappable in tests.
	loadPairs func(path string) ([]domain.PairConfig, error)
}

// NewController wires the lifecycle loop. notifier may be nil, in which case
// alerts are skipped.
func NewController(
	cfg *infra.Config,
	store *storage.PositionStore,
	journal *storage.TradeJournal,
	venue domain.Venue,
	notifier domain.Notifier,
	shutdown *atomic.Bool,
) *Controller {
	return &Controller{
		cfg:       cfg,
		store:     store,
		journal:   journal,
		venue:     venue,
		saga:      execution.NewSaga(venue),
		notifier:  notifier,
		shutdown:  shutdown,
		logger:    slog.Default().With("component", "controller"),
		loadPairs: infra.LoadPairs,
	}
}

// Run executes cycles until the context is cancelled or the shutdown flag is
// set. The flag is only checked between cycles: a saga in flight always runs
// to completion so the venue and store never diverge mid-sequence.
func (c *Controller) Run(ctx context.Context) {
	interval := c.cfg.UpdateInterval()
	c.logger.Info("Lifecycle controller started", slog.Duration("interval", interval))

	for {
		if ctx.Err() != nil || c.shutdown.Load() {
			c.logger.Info("Lifecycle controller stopping")
			return
		}

		c.RunCycle(ctx)

		select {
		case <-ctx.Done():
		case <-time.After(interval):
		}
	}
}

// RunCycle performs one full pass: exits first, then an orphan check, then
// entries up to the concurrency cap. A panic in one cycle is contained so a
// single poisoned pair cannot kill the process.
func (c *Controller) RunCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.CyclePanicsTotal.Inc()
			c.logger.Error("Cycle aborted by panic", slog.Any("panic", r))
			c.notify(ctx, fmt.Sprintf("Cycle aborted by panic: %v. Loop continues.", r))
		}
	}()

	pairs, err := c.loadPairs(c.cfg.Trading.PairsFile)
	if err != nil {
		c.logger.Warn("Pair file unreadable, skipping cycle",
			slog.String("path", c.cfg.Trading.PairsFile),
			slog.Any("error", err))
		return
	}

	configured := make(map[string]bool, len(pairs))
	for _, pair := range pairs {
		configured[pair.Key()] = true
	}

	// Exits run before entries so capital and concurrency slots freed this
	// cycle are available to new signals in the same cycle.
	for _, pair := range pairs {
		if pos, ok := c.store.Get(pair.Key()); ok {
			c.handleExit(ctx, pair, pos)
		}
	}

	for key := range c.store.Snapshot() {
		if !configured[key] {
			c.logger.Error("Open position has no pair configuration; manual intervention required",
				slog.String("pair", key))
		}
	}

	for _, pair := range pairs {
		if _, ok := c.store.Get(pair.Key()); ok {
			continue
		}
		if c.store.Len() >= c.cfg.Trading.MaxConcurrentTrades {
			break
		}
		c.handleEntry(ctx, pair)
	}

	metrics.CyclesTotal.Inc()
	metrics.OpenPositions.Set(float64(c.store.Len()))
}

// handleExit evaluates the exit conditions for an open position. A degraded
// position skips the signal entirely: the only correct move is another close
// attempt.
func (c *Controller) handleExit(ctx context.Context, pair domain.PairConfig, pos domain.Position) {
	if pos.State == domain.StateDegraded {
		c.closePosition(ctx, pos, signal.ReasonDegraded)
		return
	}

	z, ok := c.pairZScore(ctx, pair)
	if !ok {
		return
	}

	price1, err := c.venue.GetPrice(ctx, pos.Sym1)
	if err != nil {
		c.venueError("price", pos.Sym1, err)
		return
	}
	price2, err := c.venue.GetPrice(ctx, pos.Sym2)
	if err != nil {
		c.venueError("price", pos.Sym2, err)
		return
	}

	pnlPct := pos.PnLPct(price1, price2)
	reason, exit := signal.ExitReason(pos, z, pair.ZExit, pnlPct)
	if !exit {
		return
	}

	c.logger.Info("Exit signal",
		slog.String("pair", pos.Key()),
		slog.String("reason", reason),
		slog.Float64("z", z),
		slog.Float64("pnl_pct", pnlPct))
	c.closePosition(ctx, pos, reason)
}

// handleEntry evaluates the entry signal for a flat pair and opens on it.
func (c *Controller) handleEntry(ctx context.Context, pair domain.PairConfig) {
	z, ok := c.pairZScore(ctx, pair)
	if !ok {
		return
	}

	dir, enter := signal.Entry(z, pair.ZEntry)
	if !enter {
		return
	}

	price1, err := c.venue.GetPrice(ctx, pair.Sym1)
	if err != nil {
		c.venueError("price", pair.Sym1, err)
		return
	}
	price2, err := c.venue.GetPrice(ctx, pair.Sym2)
	if err != nil {
		c.venueError("price", pair.Sym2, err)
		return
	}

	capital := int64(quant.ToPriceMicros(c.cfg.Trading.CapitalPerLeg))
	qty1 := quant.QtyForNotional(capital, price1)
	qty2 := quant.QtyForNotional(capital, price2)
	if qty1 == 0 || qty2 == 0 {
		c.logger.Warn("Capital too small for a non-zero quantity, skipping entry",
			slog.String("pair", pair.Key()))
		return
	}

	c.logger.Info("Entry signal",
		slog.String("pair", pair.Key()),
		slog.String("direction", string(dir)),
		slog.Float64("z", z))

	out := c.saga.Open(ctx, pair, dir, qty1, qty2)
	switch out.Kind {
	case execution.OutcomeCommitted:
		if err := c.store.Upsert(out.Position.Key(), out.Position); err != nil {
			c.logger.Error("Persisting opened position failed", slog.Any("error", err))
		}
		metrics.TradesOpenedTotal.WithLabelValues(string(dir)).Inc()
		c.recordTrade(ctx, openEvent(out), nil)

	case execution.OutcomeAborted:
		c.logger.Warn("Open aborted",
			slog.String("pair", pair.Key()),
			slog.String("reason", out.Reason),
			slog.Any("error", out.Err))

	case execution.OutcomeDegraded:
		c.applyDegraded(ctx, out)
	}
}

// closePosition runs the close saga and applies its outcome to the store.
func (c *Controller) closePosition(ctx context.Context, pos domain.Position, reason string) {
	out := c.saga.Close(ctx, pos, reason)
	switch out.Kind {
	case execution.OutcomeCommitted:
		if err := c.store.Remove(pos.Key()); err != nil {
			c.logger.Error("Removing closed position failed", slog.Any("error", err))
		}
		metrics.TradesClosedTotal.WithLabelValues(reason).Inc()
		pnl := pos.PnLMicros(out.Leg1.PriceMicros, out.Leg2.PriceMicros)
		c.recordTrade(ctx, closeEvent(pos, out, reason), &pnl)

	case execution.OutcomeAborted:
		c.logger.Warn("Close aborted, position unchanged",
			slog.String("pair", pos.Key()),
			slog.String("reason", out.Reason),
			slog.Any("error", out.Err))

	case execution.OutcomeDegraded:
		c.applyDegraded(ctx, out)
	}
}

// applyDegraded records a degraded remainder so the exposure is retried every
// cycle until it clears, and raises an alert.
func (c *Controller) applyDegraded(ctx context.Context, out execution.Outcome) {
	metrics.DegradedTotal.Inc()
	if err := c.store.Upsert(out.Position.Key(), out.Position); err != nil {
		c.logger.Error("Persisting degraded position failed", slog.Any("error", err))
	}
	c.logger.Error("Position degraded",
		slog.String("pair", out.Position.Key()),
		slog.String("reason", out.Reason),
		slog.Any("error", out.Err))
	c.notify(ctx, "DEGRADED "+out.Position.Key()+": "+out.Reason+". Close will be retried each cycle.")
}

// recordTrade journals the event and sends the trade alert. Neither failure
// affects the lifecycle outcome already applied to the store.
func (c *Controller) recordTrade(ctx context.Context, ev domain.TradeEvent, pnl *int64) {
	ev.PnLMicros = pnl
	if c.journal != nil {
		if err := c.journal.Append(ctx, ev); err != nil {
			c.logger.Error("Journal append failed", slog.Any("error", err))
		}
	}

	var balance *domain.BalanceSnapshot
	if snap, err := c.venue.GetMarginBalance(ctx); err == nil {
		balance = &snap
	}
	c.notify(ctx, telegram.FormatTradeAlert(ev, balance))
}

func (c *Controller) notify(ctx context.Context, text string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, text); err != nil {
		c.logger.Warn("Notification failed", slog.Any("error", err))
	}
}

// pairZScore builds the spread over the pair's window and standardizes the
// latest observation. Any venue failure skips the pair for this cycle.
func (c *Controller) pairZScore(ctx context.Context, pair domain.PairConfig) (float64, bool) {
	closes1, err := c.venue.GetHistoricalPrices(ctx, pair.Sym1, pair.Window)
	if err != nil {
		c.venueError("history", pair.Sym1, err)
		return 0, false
	}
	closes2, err := c.venue.GetHistoricalPrices(ctx, pair.Sym2, pair.Window)
	if err != nil {
		c.venueError("history", pair.Sym2, err)
		return 0, false
	}
	return signal.ZScore(signal.Spread(closes1, closes2)), true
}

func (c *Controller) venueError(op, symbol string, err error) {
	metrics.VenueErrorsTotal.Inc()
	c.logger.Error("Venue call failed, skipping pair this cycle",
		slog.String("op", op),
		slog.String("symbol", symbol),
		slog.Any("error", err))
}

func openEvent(out execution.Outcome) domain.TradeEvent {
	pos := out.Position
	side1, side2 := pos.Direction.OpenSides()
	return domain.TradeEvent{
		TsUnixM: pos.OpenedUnixM,
		Sym1:    pos.Sym1,
		Sym2:    pos.Sym2,
		Side1:   side1,
		Side2:   side2,
		Price1:  out.Leg1.PriceMicros,
		Price2:  out.Leg2.PriceMicros,
		Qty1:    out.Leg1.QtySats,
		Qty2:    out.Leg2.QtySats,
		Action:  "OPEN " + string(pos.Direction),
	}
}

func closeEvent(pos domain.Position, out execution.Outcome, reason string) domain.TradeEvent {
	side1, side2 := pos.Direction.CloseSides()

	// A leg with nothing left to trade (degraded remainder) has a zero fill;
	// record the entry price so the journal row stays interpretable.
	price1, price2 := out.Leg1.PriceMicros, out.Leg2.PriceMicros
	if out.Leg1.QtySats == 0 {
		price1 = pos.Price1
	}
	if out.Leg2.QtySats == 0 {
		price2 = pos.Price2
	}

	return domain.TradeEvent{
		TsUnixM: quant.TimeStamp(time.Now().UnixMicro()),
		Sym1:    pos.Sym1,
		Sym2:    pos.Sym2,
		Side1:   side1,
		Side2:   side2,
		Price1:  price1,
		Price2:  price2,
		Qty1:    out.Leg1.QtySats,
		Qty2:    out.Leg2.QtySats,
		Action:  "CLOSE (" + reason + ")",
	}
}
