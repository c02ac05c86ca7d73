package telegram

import (
	"fmt"
	"strings"

	"pairs_go/internal/domain"
	"pairs_go/pkg/quant"
)

// FormatTradeAlert renders a trade event into the message sent to the chat.
func FormatTradeAlert(ev domain.TradeEvent, balance *domain.BalanceSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s/%s\n", ev.Action, ev.Sym1, ev.Sym2)
	fmt.Fprintf(&b, "%s %s %s @ %s\n", ev.Side1, ev.Sym1, ev.Qty1.String(), ev.Price1.String())
	fmt.Fprintf(&b, "%s %s %s @ %s\n", ev.Side2, ev.Sym2, ev.Qty2.String(), ev.Price2.String())

	if ev.PnLMicros != nil {
		fmt.Fprintf(&b, "PnL: %s USDT\n", quant.PriceMicros(*ev.PnLMicros).String())
	}
	if balance != nil {
		fmt.Fprintf(&b, "Net assets: %.6f BTC\n", balance.NetAssetBTC)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTradeHistory renders recent journal entries, oldest first.
func FormatTradeHistory(events []domain.TradeEvent) string {
	if len(events) == 0 {
		return "No trades recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Last %d trades:\n", len(events))
	for _, ev := range events {
		fmt.Fprintf(&b, "%s %s/%s", ev.Action, ev.Sym1, ev.Sym2)
		if ev.PnLMicros != nil {
			fmt.Fprintf(&b, " pnl %s", quant.PriceMicros(*ev.PnLMicros).String())
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatStatus renders the open position set for a status command reply.
func FormatStatus(positions []domain.Position) string {
	if len(positions) == 0 {
		return "No open positions."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Open positions: %d\n", len(positions))
	for _, p := range positions {
		fmt.Fprintf(&b, "%s/%s %s state=%s entry %s / %s\n",
			p.Sym1, p.Sym2, p.Direction, p.State,
			p.Price1.String(), p.Price2.String())
	}
	return strings.TrimRight(b.String(), "\n")
}
