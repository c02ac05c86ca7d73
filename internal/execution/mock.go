package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pairs_go/internal/domain"
	"pairs_go/pkg/quant"
)

// OrderCall records one PlaceOrder invocation for test assertions.
type OrderCall struct {
	Symbol string
	Side   domain.Side
	Qty    quant.QtySats
}

// MockVenue is a scripted venue for tests. Failures are keyed by
// "SYMBOL:SIDE" so a compensating order can be failed independently of the
// order it reverses.
type MockVenue struct {
	mu sync.Mutex

	Prices  map[string]quant.PriceMicros
	History map[string][]float64

	BorrowErr error
	RepayErr  error
	OrderErrs map[string]error
	// FillQtys overrides the filled quantity per "SYMBOL:SIDE" to simulate
	// partial fills; default is the requested quantity.
	FillQtys map[string]quant.QtySats

	Orders  []OrderCall
	Borrows []OrderCall
	Repays  []OrderCall
}

// NewMockVenue creates an empty scripted venue.
func NewMockVenue() *MockVenue {
	return &MockVenue{
		Prices:    make(map[string]quant.PriceMicros),
		History:   make(map[string][]float64),
		OrderErrs: make(map[string]error),
		FillQtys:  make(map[string]quant.QtySats),
	}
}

func callKey(symbol string, side domain.Side) string {
	return symbol + ":" + string(side)
}

func (m *MockVenue) GetPrice(ctx context.Context, symbol string) (quant.PriceMicros, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	price, ok := m.Prices[symbol]
	if !ok {
		return 0, fmt.Errorf("mock: no price for %s", symbol)
	}
	return price, nil
}

func (m *MockVenue) GetHistoricalPrices(ctx context.Context, symbol string, window int) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	closes := m.History[symbol]
	if len(closes) > window {
		closes = closes[len(closes)-window:]
	}
	out := make([]float64, len(closes))
	copy(out, closes)
	return out, nil
}

func (m *MockVenue) PlaceOrder(ctx context.Context, symbol string, side domain.Side, qty quant.QtySats) (domain.Fill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Orders = append(m.Orders, OrderCall{Symbol: symbol, Side: side, Qty: qty})

	key := callKey(symbol, side)
	if err := m.OrderErrs[key]; err != nil {
		return domain.Fill{}, err
	}

	filled := qty
	if override, ok := m.FillQtys[key]; ok {
		filled = override
	}
	return domain.Fill{
		Symbol:      symbol,
		Side:        side,
		QtySats:     filled,
		PriceMicros: m.Prices[symbol],
		TsUnixM:     quant.TimeStamp(time.Now().UnixMicro()),
	}, nil
}

func (m *MockVenue) Borrow(ctx context.Context, symbol string, qty quant.QtySats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Borrows = append(m.Borrows, OrderCall{Symbol: symbol, Qty: qty})
	return m.BorrowErr
}

func (m *MockVenue) Repay(ctx context.Context, symbol string, qty quant.QtySats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Repays = append(m.Repays, OrderCall{Symbol: symbol, Qty: qty})
	return m.RepayErr
}

func (m *MockVenue) GetMarginBalance(ctx context.Context) (domain.BalanceSnapshot, error) {
	return domain.BalanceSnapshot{NetAssetBTC: 1}, nil
}

func (m *MockVenue) Close() error { return nil }

// OrdersFor filters recorded orders by symbol and side.
func (m *MockVenue) OrdersFor(symbol string, side domain.Side) []OrderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []OrderCall
	for _, call := range m.Orders {
		if call.Symbol == symbol && call.Side == side {
			out = append(out, call)
		}
	}
	return out
}
