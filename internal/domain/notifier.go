package domain

import (
	"context"

	"pairs_go/pkg/quant"
)

// Command is an inbound control message from the notification channel.
type Command struct {
	ID   int64
	Text string
}

// Notifier is the outbound alert channel plus its inbound command side.
// Delivery is at-least-once; callers must track the last processed ID.
type Notifier interface {
	// Notify sends a message. Fire-and-forget: callers log failures and
	// never retry synchronously.
	Notify(ctx context.Context, text string) error

	// PollCommands returns inbound messages with ID greater than sinceID,
	// ordered by ID.
	PollCommands(ctx context.Context, sinceID int64) ([]Command, error)
}

// TradeEvent is one row of the append-only trade journal.
type TradeEvent struct {
	TsUnixM quant.TimeStamp
	Sym1    string
	Sym2    string
	Side1   Side
	Side2   Side
	Price1  quant.PriceMicros
	Price2  quant.PriceMicros
	Qty1    quant.QtySats
	Qty2    quant.QtySats
	Action  string
	// PnLMicros is set on closes only.
	PnLMicros *int64
}
