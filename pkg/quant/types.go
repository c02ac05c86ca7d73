package quant

import (
	"fmt"
	"math"
)

// PriceMicros represents price multiplied by 1,000,000 (10^6).
// E.g., 1.23 USDT = 1,230,000 PriceMicros.
type PriceMicros int64

// QtySats represents quantity multiplied by 100,000,000 (10^8).
// E.g., 1.0 BTC = 100,000,000 QtySats.
type QtySats int64

// TimeStamp represents Unix Microseconds.
type TimeStamp int64

const (
	PriceScale = 1_000_000
	QtyScale   = 100_000_000
)

// ToPriceMicros converts a float64 (from external API) to PriceMicros.
// Only used at the boundary. Internal logic stays on PriceMicros.
func ToPriceMicros(f float64) PriceMicros {
	return PriceMicros(math.Round(f * PriceScale))
}

// ToQtySats converts a float64 to QtySats.
func ToQtySats(f float64) QtySats {
	return QtySats(math.Round(f * QtyScale))
}

func (p PriceMicros) Float() float64 {
	return float64(p) / PriceScale
}

func (q QtySats) Float() float64 {
	return float64(q) / QtyScale
}

func (p PriceMicros) String() string {
	return fmt.Sprintf("%.6f", float64(p)/PriceScale)
}

func (q QtySats) String() string {
	return fmt.Sprintf("%.8f", float64(q)/QtyScale)
}

// NotionalMicros returns price * qty scaled back to micros.
// Panics on int64 overflow: a notional that large means corrupted inputs.
func NotionalMicros(price PriceMicros, qty QtySats) int64 {
	return mulDivGuarded(int64(price), int64(qty), QtyScale)
}

// LegPnLMicros returns (exit - entry) * qty in micros for a long leg.
// Callers negate for short legs.
func LegPnLMicros(entry, exit PriceMicros, qty QtySats) int64 {
	return mulDivGuarded(subGuarded(int64(exit), int64(entry)), int64(qty), QtyScale)
}

// QtyForNotional returns the quantity purchasable with capitalMicros at price.
// Zero price yields zero quantity rather than a division error.
func QtyForNotional(capitalMicros int64, price PriceMicros) QtySats {
	if price == 0 {
		return 0
	}
	return QtySats(mulDivGuarded(capitalMicros, QtyScale, int64(price)))
}

func subGuarded(a, b int64) int64 {
	if (b > 0 && a < math.MinInt64+b) || (b < 0 && a > math.MaxInt64+b) {
		panic("QUANT_SUB_OVERFLOW")
	}
	return a - b
}

// mulDivGuarded computes a*b/div, panicking on overflow or zero divisor.
func mulDivGuarded(a, b, div int64) int64 {
	if div == 0 {
		panic("QUANT_DIV_BY_ZERO")
	}
	if a == 0 || b == 0 {
		return 0
	}
	if a > 0 {
		if b > 0 {
			if a > math.MaxInt64/b {
				panic("QUANT_MUL_OVERFLOW")
			}
		} else if b < math.MinInt64/a {
			panic("QUANT_MUL_OVERFLOW")
		}
	} else {
		if b > 0 {
			if a < math.MinInt64/b {
				panic("QUANT_MUL_OVERFLOW")
			}
		} else if a < math.MaxInt64/b {
			panic("QUANT_MUL_OVERFLOW")
		}
	}
	return a * b / div
}
