package domain

import "fmt"

// DefaultRiskLimit is applied when a pair row omits stop_loss or take_profit.
const DefaultRiskLimit = 0.05

// PairConfig holds the per-pair trading parameters. It is reloaded from the
// pair file on every controller iteration and treated as an immutable snapshot
// within one cycle.
type PairConfig struct {
	Sym1       string
	Sym2       string
	Window     int
	ZEntry     float64
	ZExit      float64
	StopLoss   float64
	TakeProfit float64
}

// Key returns the canonical pair key shared with the position store.
func (p PairConfig) Key() string {
	return PairKey(p.Sym1, p.Sym2)
}

// PairKey builds the "sym1/sym2" store key.
func PairKey(sym1, sym2 string) string {
	return sym1 + "/" + sym2
}

// Validate rejects rows that can never produce a tradable signal.
func (p PairConfig) Validate() error {
	if p.Sym1 == "" || p.Sym2 == "" {
		return fmt.Errorf("pair %q: both symbols are required", p.Key())
	}
	if p.Sym1 == p.Sym2 {
		return fmt.Errorf("pair %q: symbols must differ", p.Key())
	}
	if p.Window <= 0 {
		return fmt.Errorf("pair %q: window must be positive, got %d", p.Key(), p.Window)
	}
	if p.ZEntry <= 0 {
		return fmt.Errorf("pair %q: z_entry must be positive, got %f", p.Key(), p.ZEntry)
	}
	return nil
}
