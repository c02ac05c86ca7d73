package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pairs_go/internal/domain"
	"pairs_go/pkg/quant"
)

// MarketData is the read-only slice of a venue that the paper venue keeps
// real: live prices and historical candles.
type MarketData interface {
	GetPrice(ctx context.Context, symbol string) (quant.PriceMicros, error)
	GetHistoricalPrices(ctx context.Context, symbol string, window int) ([]float64, error)
}

// PaperVenue simulates fills, loans, and balances against real market data.
// Used for strategy validation before any real money moves.
type PaperVenue struct {
	market MarketData

	mu         sync.Mutex
	cashMicros int64
	holdings   map[string]quant.QtySats // signed: negative while short
	loans      map[string]quant.QtySats
}

// NewPaperVenue creates a paper venue with the given starting quote balance.
func NewPaperVenue(market MarketData, startingCashMicros int64) *PaperVenue {
	return &PaperVenue{
		market:     market,
		cashMicros: startingCashMicros,
		holdings:   make(map[string]quant.QtySats),
		loans:      make(map[string]quant.QtySats),
	}
}

func (p *PaperVenue) GetPrice(ctx context.Context, symbol string) (quant.PriceMicros, error) {
	return p.market.GetPrice(ctx, symbol)
}

func (p *PaperVenue) GetHistoricalPrices(ctx context.Context, symbol string, window int) ([]float64, error) {
	return p.market.GetHistoricalPrices(ctx, symbol, window)
}

// PlaceOrder fills immediately at the live price. Sells may draw on borrowed
// inventory; buys require cash.
func (p *PaperVenue) PlaceOrder(ctx context.Context, symbol string, side domain.Side, qty quant.QtySats) (domain.Fill, error) {
	if qty <= 0 {
		return domain.Fill{}, fmt.Errorf("paper: quantity must be positive")
	}
	price, err := p.market.GetPrice(ctx, symbol)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("paper: no price for %s: %w", symbol, err)
	}
	notional := quant.NotionalMicros(price, qty)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch side {
	case domain.SideBuy:
		if notional > p.cashMicros {
			return domain.Fill{}, fmt.Errorf("paper: insufficient cash for %s buy: need %d, have %d",
				symbol, notional, p.cashMicros)
		}
		p.cashMicros -= notional
		p.holdings[symbol] += qty
	case domain.SideSell:
		p.cashMicros += notional
		p.holdings[symbol] -= qty
	default:
		return domain.Fill{}, fmt.Errorf("paper: unknown side %q", side)
	}

	slog.Info("PAPER fill",
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.String("qty", qty.String()),
		slog.String("price", price.String()))

	return domain.Fill{
		Symbol:      symbol,
		Side:        side,
		QtySats:     qty,
		PriceMicros: price,
		TsUnixM:     quant.TimeStamp(time.Now().UnixMicro()),
	}, nil
}

func (p *PaperVenue) Borrow(ctx context.Context, symbol string, qty quant.QtySats) error {
	if qty <= 0 {
		return fmt.Errorf("paper: borrow quantity must be positive")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loans[symbol] += qty
	return nil
}

func (p *PaperVenue) Repay(ctx context.Context, symbol string, qty quant.QtySats) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	outstanding := p.loans[symbol]
	if qty > outstanding {
		// Venues cap repayment at the outstanding amount; mirror that.
		qty = outstanding
	}
	p.loans[symbol] = outstanding - qty
	return nil
}

func (p *PaperVenue) GetMarginBalance(ctx context.Context) (domain.BalanceSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.BalanceSnapshot{NetAssetBTC: float64(p.cashMicros) / quant.PriceScale}, nil
}

// Loan reports the outstanding loan for a symbol (test hook).
func (p *PaperVenue) Loan(symbol string) quant.QtySats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loans[symbol]
}

// Holding reports the signed inventory for a symbol (test hook).
func (p *PaperVenue) Holding(symbol string) quant.QtySats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holdings[symbol]
}

func (p *PaperVenue) Close() error { return nil }
