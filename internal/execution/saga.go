// Package execution orchestrates the compensating order/loan sequences that
// move a pair between flat and open, and provides the venue implementations
// behind them.
package execution

import (
	"context"
	"log/slog"
	"time"

	"pairs_go/internal/domain"
	"pairs_go/internal/metrics"
	"pairs_go/pkg/quant"
)

// OutcomeKind tags the result of a saga.
type OutcomeKind int

const (
	// OutcomeCommitted means every step completed; the position transition
	// is fully applied on the venue.
	OutcomeCommitted OutcomeKind = iota
	// OutcomeAborted means nothing externally observable remains: either no
	// leg executed or every executed leg was compensated back to flat.
	OutcomeAborted
	// OutcomeDegraded means a compensation failed and a single-leg exposure
	// is live on the venue. The carried Position must be recorded, alerted,
	// and retried; it must never be silently dropped.
	OutcomeDegraded
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCommitted:
		return "COMMITTED"
	case OutcomeAborted:
		return "ABORTED"
	case OutcomeDegraded:
		return "DEGRADED"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the single result a saga hands back to the controller. The saga
// never touches the position store itself; the controller applies Position.
type Outcome struct {
	Kind     OutcomeKind
	Position domain.Position // set for Committed and Degraded
	Leg1     domain.Fill
	Leg2     domain.Fill
	Reason   string
	Err      error
}

// Saga executes the ordered, compensating venue-call sequences for opening
// and closing a two-legged position. Legs are always attempted sym1 before
// sym2 so that compensation logic stays deterministic.
type Saga struct {
	venue domain.Venue
}

// NewSaga wraps a venue.
func NewSaga(venue domain.Venue) *Saga {
	return &Saga{venue: venue}
}

// Open transitions a pair from flat to open.
//
// Order of operations: borrow for the short leg, fill leg 1, fill leg 2.
// A failure before any fill aborts cleanly; a leg-2 failure is compensated by
// reversing leg 1 and repaying the loan. Only a failed compensation leaves
// the venue inconsistent, and that surfaces as a Degraded outcome.
func (s *Saga) Open(ctx context.Context, pair domain.PairConfig, dir domain.Direction, qty1, qty2 quant.QtySats) Outcome {
	side1, side2 := dir.OpenSides()

	borrowSym, borrowQty := pair.Sym1, qty1
	if dir == domain.LongSpread {
		borrowSym, borrowQty = pair.Sym2, qty2
	}

	if err := s.venue.Borrow(ctx, borrowSym, borrowQty); err != nil {
		return Outcome{Kind: OutcomeAborted, Reason: "borrow failed", Err: err}
	}

	fill1, err := s.venue.PlaceOrder(ctx, pair.Sym1, side1, qty1)
	if err != nil {
		// The loan is unused; reverse it before walking away.
		if repayErr := s.venue.Repay(ctx, borrowSym, borrowQty); repayErr != nil {
			slog.Error("Repay after leg-1 failure did not complete; loan outstanding",
				slog.String("symbol", borrowSym),
				slog.String("qty", borrowQty.String()),
				slog.Any("error", repayErr))
		}
		return Outcome{Kind: OutcomeAborted, Reason: "leg-1 order failed", Err: err}
	}

	fill2, err := s.venue.PlaceOrder(ctx, pair.Sym2, side2, qty2)
	if err != nil {
		// Compensate: reverse leg 1 with its actual filled quantity.
		if _, compErr := s.venue.PlaceOrder(ctx, pair.Sym1, side1.Opposite(), fill1.QtySats); compErr != nil {
			slog.Error("Compensating order failed; single-leg exposure live",
				slog.String("pair", pair.Key()),
				slog.Any("leg2_error", err),
				slog.Any("compensation_error", compErr))
			pos := buildPosition(pair, dir, fill1, domain.Fill{})
			pos.State = domain.StateDegraded
			pos.BorrowedQty = borrowQty
			return Outcome{
				Kind:     OutcomeDegraded,
				Position: pos,
				Leg1:     fill1,
				Reason:   "leg-2 failed and compensation failed",
				Err:      compErr,
			}
		}
		metrics.CompensationsTotal.Inc()
		if repayErr := s.venue.Repay(ctx, borrowSym, borrowQty); repayErr != nil {
			slog.Error("Repay after compensation did not complete; loan outstanding",
				slog.String("symbol", borrowSym),
				slog.Any("error", repayErr))
		}
		return Outcome{Kind: OutcomeAborted, Reason: "leg-2 order failed", Err: err}
	}

	pos := buildPosition(pair, dir, fill1, fill2)
	pos.BorrowedQty = borrowQty
	return Outcome{Kind: OutcomeCommitted, Position: pos, Leg1: fill1, Leg2: fill2}
}

// Close transitions a position back to flat. Legs close sym1 first. A leg-1
// failure aborts with the position untouched; a leg-2 failure leaves an
// asymmetric remainder carried in the Degraded outcome. Loan repayment uses
// the closing order's actual filled quantity and is logged, never fatal.
func (s *Saga) Close(ctx context.Context, pos domain.Position, reason string) Outcome {
	side1, side2 := pos.Direction.CloseSides()
	borrowLeg := pos.BorrowLeg()

	var fill1 domain.Fill
	if pos.Qty1 > 0 {
		var err error
		fill1, err = s.venue.PlaceOrder(ctx, pos.Sym1, side1, pos.Qty1)
		if err != nil {
			return Outcome{Kind: OutcomeAborted, Reason: "leg-1 close failed", Err: err}
		}
		if borrowLeg == 1 {
			s.repay(ctx, pos.Sym1, fill1.QtySats)
		}
	}

	var fill2 domain.Fill
	if pos.Qty2 > 0 {
		var err error
		fill2, err = s.venue.PlaceOrder(ctx, pos.Sym2, side2, pos.Qty2)
		if err != nil {
			// Leg 1 is closed but leg 2 is still live. Deleting the entry
			// would lose track of the exposure, so hand back the remainder.
			remainder := pos
			remainder.Qty1 = 0
			remainder.State = domain.StateDegraded
			if borrowLeg == 1 {
				remainder.BorrowedQty = 0
			}
			slog.Error("Close left an asymmetric position",
				slog.String("pair", pos.Key()),
				slog.String("reason", reason),
				slog.Any("error", err))
			return Outcome{
				Kind:     OutcomeDegraded,
				Position: remainder,
				Leg1:     fill1,
				Reason:   "leg-2 close failed",
				Err:      err,
			}
		}
		if borrowLeg == 2 {
			s.repay(ctx, pos.Sym2, fill2.QtySats)
		}
	} else if borrowLeg == 2 && pos.BorrowedQty > 0 {
		// Degraded open left a loan with no leg-2 exposure behind it.
		s.repay(ctx, pos.Sym2, pos.BorrowedQty)
	}

	return Outcome{Kind: OutcomeCommitted, Position: pos, Leg1: fill1, Leg2: fill2, Reason: reason}
}

func (s *Saga) repay(ctx context.Context, symbol string, qty quant.QtySats) {
	if qty <= 0 {
		return
	}
	if err := s.venue.Repay(ctx, symbol, qty); err != nil {
		slog.Error("Loan repay failed; interest keeps accruing until retried",
			slog.String("symbol", symbol),
			slog.String("qty", qty.String()),
			slog.Any("error", err))
	}
}

func buildPosition(pair domain.PairConfig, dir domain.Direction, fill1, fill2 domain.Fill) domain.Position {
	return domain.Position{
		Sym1:        pair.Sym1,
		Sym2:        pair.Sym2,
		Qty1:        fill1.QtySats,
		Qty2:        fill2.QtySats,
		Price1:      fill1.PriceMicros,
		Price2:      fill2.PriceMicros,
		Direction:   dir,
		StopLoss:    pair.StopLoss,
		TakeProfit:  pair.TakeProfit,
		State:       domain.StateOpen,
		OpenedUnixM: quant.TimeStamp(time.Now().UnixMicro()),
	}
}

