package binance

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pairs_go/internal/infra"
	"pairs_go/pkg/quant"
)

// priceTTL bounds how stale a streamed price may be before callers fall
// back to REST.
const priceTTL = 10 * time.Second

type streamedPrice struct {
	price quant.PriceMicros
	at    time.Time
}

// PriceStream maintains a live price cache fed by the combined miniTicker
// websocket stream, reconnecting with backoff on failure.
type PriceStream struct {
	wsURL  string
	logger *slog.Logger

	mu     sync.RWMutex
	prices map[string]streamedPrice

	cancel context.CancelFunc
	done   chan struct{}
}

type miniTickerEvent struct {
	Data struct {
		Symbol string `json:"s"`
		Close  string `json:"c"`
	} `json:"data"`
}

func NewPriceStream(wsURL string, logger *slog.Logger) *PriceStream {
	return &PriceStream{
		wsURL:  strings.TrimRight(wsURL, "/"),
		logger: logger.With("component", "stream"),
		prices: make(map[string]streamedPrice),
	}
}

// Start begins streaming prices for the given symbols in a background
// goroutine. It returns immediately.
func (ps *PriceStream) Start(ctx context.Context, symbols []string) {
	ctx, ps.cancel = context.WithCancel(ctx)
	ps.done = make(chan struct{})
	go ps.run(ctx, symbols)
}

// Stop terminates the stream and waits for the goroutine to exit.
func (ps *PriceStream) Stop() {
	if ps.cancel == nil {
		return
	}
	ps.cancel()
	<-ps.done
}

// Price returns the cached price for a symbol if it is fresh enough.
func (ps *PriceStream) Price(symbol string) (quant.PriceMicros, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	sp, ok := ps.prices[symbol]
	if !ok || time.Since(sp.at) > priceTTL {
		return 0, false
	}
	return sp.price, true
}

func (ps *PriceStream) run(ctx context.Context, symbols []string) {
	defer close(ps.done)

	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		streams = append(streams, strings.ToLower(s)+"@miniTicker")
	}
	endpoint := ps.wsURL + "/stream?streams=" + strings.Join(streams, "/")

	retry := 0
	for {
		if ctx.Err() != nil {
			return
		}
		if err := ps.readLoop(ctx, endpoint); err != nil {
			ps.logger.Warn("stream disconnected", "error", err)
		}
		if ctx.Err() != nil {
			return
		}

		wait := infra.CalculateBackoff(retry)
		retry++
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (ps *PriceStream) readLoop(ctx context.Context, endpoint string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	ps.logger.Info("stream connected", "url", endpoint)

	readerDone := make(chan struct{})
	defer close(readerDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-readerDone:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ps.handleMessage(msg)
	}
}

func (ps *PriceStream) handleMessage(msg []byte) {
	var ev miniTickerEvent
	if err := json.Unmarshal(msg, &ev); err != nil || ev.Data.Symbol == "" {
		return
	}
	px, err := parsePriceMicros(ev.Data.Close)
	if err != nil {
		ps.logger.Warn("bad stream price", "symbol", ev.Data.Symbol, "error", err)
		return
	}
	ps.mu.Lock()
	ps.prices[ev.Data.Symbol] = streamedPrice{price: px, at: time.Now()}
	ps.mu.Unlock()
}
