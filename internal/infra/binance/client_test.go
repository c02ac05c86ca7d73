package binance

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pairs_go/internal/infra"
	"pairs_go/pkg/quant"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int) {
	t.Helper()
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return &Client{
		baseURL:    srv.URL,
		quoteAsset: "USDT",
		httpClient: srv.Client(),
		signer:     NewSigner("key", "secret"),
		breaker:    infra.NewCircuitBreaker("test"),
		stream:     NewPriceStream("wss://unused", slog.Default()),
		logger:     slog.Default(),
	}, &hits
}

func TestGetPriceUsesFreshStreamedPrice(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"50000.0"}`))
	})
	c.stream.prices["BTCUSDT"] = streamedPrice{price: 42_000_000_000, at: time.Now()}

	px, err := c.GetPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if px != 42_000_000_000 {
		t.Errorf("expected the streamed price, got %d", px)
	}
	if *hits != 0 {
		t.Errorf("fresh cache hit must not reach REST, got %d requests", *hits)
	}
}

func TestGetPriceFallsBackWhenStreamStale(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pathTickerPrice {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"50000.0"}`))
	})
	c.stream.prices["BTCUSDT"] = streamedPrice{
		price: 42_000_000_000,
		at:    time.Now().Add(-priceTTL - time.Second),
	}

	px, err := c.GetPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if px != 50_000_000_000 {
		t.Errorf("expected the REST price, got %d", px)
	}
	if *hits != 1 {
		t.Errorf("stale cache must fall back to REST exactly once, got %d requests", *hits)
	}
}

func TestStreamCachesParsedTickerMessages(t *testing.T) {
	ps := NewPriceStream("wss://unused", slog.Default())

	ps.handleMessage([]byte(`{"data":{"s":"ETHUSDT","c":"3000.5"}}`))
	px, ok := ps.Price("ETHUSDT")
	if !ok {
		t.Fatal("expected a cached price after a ticker message")
	}
	if px != quant.PriceMicros(3_000_500_000) {
		t.Errorf("cached price = %d", px)
	}

	// Garbage and unknown shapes are dropped without poisoning the cache.
	ps.handleMessage([]byte(`not json`))
	ps.handleMessage([]byte(`{"data":{"c":"1.0"}}`))
	if _, ok := ps.Price(""); ok {
		t.Error("message without a symbol must not be cached")
	}
}

func TestStreamPriceExpires(t *testing.T) {
	ps := NewPriceStream("wss://unused", slog.Default())
	ps.prices["BTCUSDT"] = streamedPrice{price: 1, at: time.Now().Add(-priceTTL - time.Second)}

	if _, ok := ps.Price("BTCUSDT"); ok {
		t.Error("expired price must not be served")
	}
}
