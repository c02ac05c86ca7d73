package domain

import (
	"testing"

	"pairs_go/pkg/quant"
)

func openPosition(dir Direction) Position {
	return Position{
		Sym1:      "AAAUSDT",
		Sym2:      "BBBUSDT",
		Qty1:      quant.ToQtySats(1),
		Qty2:      quant.ToQtySats(2),
		Price1:    quant.ToPriceMicros(50),
		Price2:    quant.ToPriceMicros(25),
		Direction: dir,
		State:     StateOpen,
	}
}

func TestEntryNotionalMicros(t *testing.T) {
	pos := openPosition(LongSpread)
	// 1*50 + 2*25 = 100
	if got := pos.EntryNotionalMicros(); got != 100_000_000 {
		t.Fatalf("EntryNotionalMicros = %d, want 100000000", got)
	}
}

func TestPnLDirectionAdjusted(t *testing.T) {
	// sym1 moves 50 -> 55 (+5 per unit), sym2 moves 25 -> 24 (-1 per unit).
	p1 := quant.ToPriceMicros(55)
	p2 := quant.ToPriceMicros(24)

	long := openPosition(LongSpread)
	// long sym1: +5*1, short sym2: +1*2 -> +7
	if got := long.PnLMicros(p1, p2); got != 7_000_000 {
		t.Errorf("LONG_SPREAD PnL = %d, want 7000000", got)
	}

	short := openPosition(ShortSpread)
	// short sym1: -5*1, long sym2: -1*2 -> -7
	if got := short.PnLMicros(p1, p2); got != -7_000_000 {
		t.Errorf("SHORT_SPREAD PnL = %d, want -7000000", got)
	}
}

func TestPnLPct(t *testing.T) {
	pos := openPosition(LongSpread)
	p1 := quant.ToPriceMicros(55)
	p2 := quant.ToPriceMicros(24)
	got := pos.PnLPct(p1, p2)
	if got < 0.0699 || got > 0.0701 {
		t.Errorf("PnLPct = %f, want 0.07", got)
	}

	// Zero notional must not divide by zero.
	empty := Position{Direction: LongSpread}
	if got := empty.PnLPct(p1, p2); got != 0 {
		t.Errorf("PnLPct on empty position = %f, want 0", got)
	}
}

func TestBorrowLeg(t *testing.T) {
	if openPosition(ShortSpread).BorrowLeg() != 1 {
		t.Error("SHORT_SPREAD must borrow leg 1")
	}
	if openPosition(LongSpread).BorrowLeg() != 2 {
		t.Error("LONG_SPREAD must borrow leg 2")
	}
}

func TestPairConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PairConfig
		wantErr bool
	}{
		{"valid", PairConfig{Sym1: "A", Sym2: "B", Window: 20, ZEntry: 2}, false},
		{"same symbols", PairConfig{Sym1: "A", Sym2: "A", Window: 20, ZEntry: 2}, true},
		{"zero window", PairConfig{Sym1: "A", Sym2: "B", ZEntry: 2}, true},
		{"zero z_entry", PairConfig{Sym1: "A", Sym2: "B", Window: 20}, true},
		{"missing symbol", PairConfig{Sym1: "A", Window: 20, ZEntry: 2}, true},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
