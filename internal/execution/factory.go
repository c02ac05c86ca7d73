package execution

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"pairs_go/internal/domain"
	"pairs_go/internal/infra"
	"pairs_go/internal/infra/binance"
	"pairs_go/pkg/quant"
)

// Mode selects the trading execution mode.
type Mode string

const (
	ModePaper Mode = "PAPER"
	ModeReal  Mode = "REAL"
)

// NewVenue builds the venue for the configured mode.
//
// PAPER keeps market data real but simulates fills and loans. REAL talks to
// the live margin endpoints and is gated behind an explicit environment
// latch so a config typo cannot move real money.
func NewVenue(cfg *infra.Config) (domain.Venue, error) {
	mode := Mode(cfg.Trading.Mode)
	if mode == "" {
		mode = ModePaper
	}

	slog.Info("Initializing execution venue", slog.String("mode", string(mode)))

	client := binance.NewClient(cfg)

	switch mode {
	case ModePaper:
		starting := int64(quant.ToPriceMicros(cfg.Trading.PaperStartingCash))
		return newPaperWrapper(client, starting), nil

	case ModeReal:
		if os.Getenv("CONFIRM_REAL_MONEY") != "true" {
			return nil, fmt.Errorf("SAFETY_GUARD: real trading requires CONFIRM_REAL_MONEY=true")
		}
		slog.Warn("REAL trading mode: live margin orders will be placed")
		return client, nil

	default:
		return nil, fmt.Errorf("unknown execution mode: %q", cfg.Trading.Mode)
	}
}

// paperWrapper owns the underlying client so Close reaches it.
type paperWrapper struct {
	*PaperVenue
	client *binance.Client
}

func newPaperWrapper(client *binance.Client, startingCashMicros int64) *paperWrapper {
	return &paperWrapper{
		PaperVenue: NewPaperVenue(client, startingCashMicros),
		client:     client,
	}
}

func (w *paperWrapper) Close() error {
	return w.client.Close()
}

// StartStream forwards to the underlying client so paper mode still gets
// streamed market data.
func (w *paperWrapper) StartStream(ctx context.Context, symbols []string) {
	w.client.StartStream(ctx, symbols)
}
