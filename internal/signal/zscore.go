// Package signal computes the standardized spread deviation that gates
// position entry and exit. Pure functions, no I/O.
package signal

import (
	"math"

	"pairs_go/internal/domain"
)

// Close reasons recorded in the journal and surfaced in notifications.
const (
	ReasonZExit      = "Z-Score Exit"
	ReasonStopLoss   = "Stop Loss"
	ReasonTakeProfit = "Take Profit"
	ReasonDegraded   = "Degraded Retry"
)

// ZScore returns how many sample standard deviations the last observation
// lies from the series mean. Degenerate input (fewer than 2 observations,
// zero deviation, NaN) yields 0: a flat spread is a no-signal, never an error.
func ZScore(series []float64) float64 {
	n := len(series)
	if n < 2 {
		return 0
	}

	var sum float64
	for _, v := range series {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range series {
		d := v - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(n-1))

	if std == 0 || math.IsNaN(std) {
		return 0
	}
	z := (series[n-1] - mean) / std
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0
	}
	return z
}

// Spread builds the pairwise close-price difference over the aligned tail of
// both series. Mismatched lengths are trimmed from the front so the latest
// observations stay aligned.
func Spread(closes1, closes2 []float64) []float64 {
	n := len(closes1)
	if len(closes2) < n {
		n = len(closes2)
	}
	if n == 0 {
		return nil
	}
	c1 := closes1[len(closes1)-n:]
	c2 := closes2[len(closes2)-n:]

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = c1[i] - c2[i]
	}
	return out
}

// Entry maps a z-score to a directional signal for a flat pair.
// A positive excursion means sym1 is rich: sell the spread.
func Entry(z, zEntry float64) (domain.Direction, bool) {
	switch {
	case z > zEntry:
		return domain.ShortSpread, true
	case z < -zEntry:
		return domain.LongSpread, true
	default:
		return "", false
	}
}

// ExitReason evaluates the exit conditions for an open position in the fixed
// order z-exit, stop-loss, take-profit; the first satisfied condition wins.
func ExitReason(pos domain.Position, z, zExit, pnlPct float64) (string, bool) {
	switch pos.Direction {
	case domain.ShortSpread:
		if z < zExit {
			return ReasonZExit, true
		}
	case domain.LongSpread:
		if z > -zExit {
			return ReasonZExit, true
		}
	}
	if pnlPct <= -pos.StopLoss {
		return ReasonStopLoss, true
	}
	if pnlPct >= pos.TakeProfit {
		return ReasonTakeProfit, true
	}
	return "", false
}
