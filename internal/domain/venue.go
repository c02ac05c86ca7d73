package domain

import (
	"context"

	"pairs_go/pkg/quant"
)

// Side is an order direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the reversing side, used for compensating orders.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Fill reports what a market order actually did, which may differ from what
// was requested in both quantity and price.
type Fill struct {
	Symbol      string
	Side        Side
	QtySats     quant.QtySats
	PriceMicros quant.PriceMicros
	TsUnixM     quant.TimeStamp
}

// BalanceSnapshot is a point-in-time view of the margin account.
type BalanceSnapshot struct {
	NetAssetBTC float64
}

// Venue abstracts the margin-trading exchange. Implementations must bound
// every call with their own timeout and surface failures as errors, never
// hangs. All quantities are magnitudes.
type Venue interface {
	// GetPrice returns the latest trade price for a symbol.
	GetPrice(ctx context.Context, symbol string) (quant.PriceMicros, error)

	// GetHistoricalPrices returns up to window ordered close prices,
	// oldest first. A short or empty slice is not an error.
	GetHistoricalPrices(ctx context.Context, symbol string, window int) ([]float64, error)

	// PlaceOrder submits a market order and reports the actual fill.
	PlaceOrder(ctx context.Context, symbol string, side Side, qty quant.QtySats) (Fill, error)

	// Borrow takes out a margin loan on the symbol's base asset.
	Borrow(ctx context.Context, symbol string, qty quant.QtySats) error

	// Repay returns a margin loan on the symbol's base asset.
	Repay(ctx context.Context, symbol string, qty quant.QtySats) error

	// GetMarginBalance returns the margin account snapshot.
	GetMarginBalance(ctx context.Context) (BalanceSnapshot, error)

	// Close releases connections and wipes credentials.
	Close() error
}
