package domain

import "pairs_go/pkg/quant"

// Direction identifies which side of the spread a position holds.
type Direction string

const (
	// LongSpread is long sym1 / short sym2.
	LongSpread Direction = "LONG_SPREAD"
	// ShortSpread is short sym1 / long sym2.
	ShortSpread Direction = "SHORT_SPREAD"
)

// OpenSides returns the order sides for opening legs 1 and 2.
func (d Direction) OpenSides() (Side, Side) {
	if d == ShortSpread {
		return SideSell, SideBuy
	}
	return SideBuy, SideSell
}

// CloseSides reverses the opening sides.
func (d Direction) CloseSides() (Side, Side) {
	side1, side2 := d.OpenSides()
	return side1.Opposite(), side2.Opposite()
}

// PositionState tracks whether a position is a healthy two-legged exposure
// or a degraded remainder awaiting a close retry.
type PositionState string

const (
	StateOpen     PositionState = "OPEN"
	StateDegraded PositionState = "DEGRADED"
)

// Position is an open two-legged exposure, keyed by "sym1/sym2".
// Quantities are magnitudes; Direction carries the sign.
type Position struct {
	Sym1   string            `json:"sym1"`
	Sym2   string            `json:"sym2"`
	Qty1   quant.QtySats     `json:"qty1"`
	Qty2   quant.QtySats     `json:"qty2"`
	Price1 quant.PriceMicros `json:"price1"`
	Price2 quant.PriceMicros `json:"price2"`

	Direction  Direction     `json:"direction"`
	StopLoss   float64       `json:"stop_loss"`
	TakeProfit float64       `json:"take_profit"`
	State      PositionState `json:"state"`

	// BorrowedQty is the outstanding margin loan on the short leg, kept so a
	// degraded position can still repay on a later close retry.
	BorrowedQty quant.QtySats   `json:"borrowed_qty"`
	OpenedUnixM quant.TimeStamp `json:"opened_unix_m"`
}

// Key returns the position's store key.
func (p Position) Key() string {
	return PairKey(p.Sym1, p.Sym2)
}

// BorrowLeg reports which leg carries the margin loan: the leg sold short.
func (p Position) BorrowLeg() int {
	if p.Direction == ShortSpread {
		return 1
	}
	return 2
}

// EntryNotionalMicros is the combined entry value of both legs.
func (p Position) EntryNotionalMicros() int64 {
	return quant.NotionalMicros(p.Price1, p.Qty1) + quant.NotionalMicros(p.Price2, p.Qty2)
}

// PnLMicros marks both legs to market against the entry fills,
// sign-adjusted for direction.
func (p Position) PnLMicros(price1, price2 quant.PriceMicros) int64 {
	leg1 := quant.LegPnLMicros(p.Price1, price1, p.Qty1)
	leg2 := quant.LegPnLMicros(p.Price2, price2, p.Qty2)
	if p.Direction == ShortSpread {
		return -leg1 + leg2
	}
	return leg1 - leg2
}

// PnLPct returns mark-to-market PnL as a fraction of entry notional.
// A zero notional yields 0 rather than a division error.
func (p Position) PnLPct(price1, price2 quant.PriceMicros) float64 {
	notional := p.EntryNotionalMicros()
	if notional == 0 {
		return 0
	}
	return float64(p.PnLMicros(price1, price2)) / float64(notional)
}
