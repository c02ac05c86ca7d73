package binance

import (
	"net/url"
	"strings"
	"testing"

	"pairs_go/internal/domain"
)

func TestSignatureDeterministic(t *testing.T) {
	s := NewSigner("key", "secret")
	sig1 := s.signature("symbol=BTCUSDT&side=BUY")
	sig2 := s.signature("symbol=BTCUSDT&side=BUY")
	if sig1 != sig2 {
		t.Fatalf("signature not deterministic: %s vs %s", sig1, sig2)
	}
	if len(sig1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(sig1))
	}
}

func TestSignKnownVector(t *testing.T) {
	// Vector from the Binance API documentation.
	s := NewSigner("key", "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j")
	payload := "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1&price=0.1&recvWindow=5000&timestamp=1499827319559"
	want := "c8db56825ae71d6d79447849e617115f4a920fa2acdcab2b053c4b2838bd6b71"
	if got := s.signature(payload); got != want {
		t.Errorf("signature mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestSignAppendsTimestampAndSignature(t *testing.T) {
	s := NewSigner("key", "secret")
	params := url.Values{}
	params.Set("symbol", "BTCUSDT")
	query := s.Sign(params)
	if !strings.Contains(query, "timestamp=") {
		t.Errorf("query missing timestamp: %s", query)
	}
	if !strings.Contains(query, "&signature=") {
		t.Errorf("query missing signature: %s", query)
	}
}

func TestWipeClearsKeys(t *testing.T) {
	s := NewSigner("key", "secret")
	s.Wipe()
	for _, b := range s.secretKey {
		if b != 0 {
			t.Fatal("secret key not wiped")
		}
	}
	for _, b := range s.apiKey {
		if b != 0 {
			t.Fatal("api key not wiped")
		}
	}
}

func TestParsePriceMicros(t *testing.T) {
	px, err := parsePriceMicros("42123.456789")
	if err != nil {
		t.Fatalf("parsePriceMicros: %v", err)
	}
	if int64(px) != 42123456789 {
		t.Errorf("expected 42123456789, got %d", px)
	}
	if _, err := parsePriceMicros("not-a-number"); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestFormatQtyRoundTrip(t *testing.T) {
	qty, err := parseQtySats("0.12345678")
	if err != nil {
		t.Fatalf("parseQtySats: %v", err)
	}
	if got := formatQty(qty); got != "0.12345678" {
		t.Errorf("expected 0.12345678, got %s", got)
	}
}

func TestFillFromOrderAveragesFills(t *testing.T) {
	resp := &marginOrderResponse{
		Symbol:              "BTCUSDT",
		OrderID:             7,
		TransactTime:        1700000000000,
		Status:              "FILLED",
		ExecutedQty:         "0.50000000",
		CummulativeQuoteQty: "21000.00000000",
	}
	fill, err := fillFromOrder(resp, domain.SideBuy)
	if err != nil {
		t.Fatalf("fillFromOrder: %v", err)
	}
	if int64(fill.QtySats) != 50_000_000 {
		t.Errorf("qty: expected 50000000 sats, got %d", fill.QtySats)
	}
	// 21000 / 0.5 = 42000 average price.
	if int64(fill.PriceMicros) != 42_000_000_000 {
		t.Errorf("price: expected 42000000000 micros, got %d", fill.PriceMicros)
	}
	if fill.TsUnixM != 1700000000000 {
		t.Errorf("timestamp not carried: %d", fill.TsUnixM)
	}
}

func TestFillFromOrderRejectsZeroFill(t *testing.T) {
	resp := &marginOrderResponse{
		Symbol:              "BTCUSDT",
		Status:              "EXPIRED",
		ExecutedQty:         "0.00000000",
		CummulativeQuoteQty: "0.00000000",
	}
	if _, err := fillFromOrder(resp, domain.SideSell); err == nil {
		t.Error("expected error for zero executed quantity")
	}
}

func TestKlineCloses(t *testing.T) {
	raw := []byte(`[
		[1700000000000,"100.0","101.0","99.0","100.5",1,1,"x",1,"y","z"],
		[1700000060000,"100.5","102.0","100.0","101.5",1,1,"x",1,"y","z"]
	]`)
	closes, err := klineCloses(raw)
	if err != nil {
		t.Fatalf("klineCloses: %v", err)
	}
	if len(closes) != 2 {
		t.Fatalf("expected 2 closes, got %d", len(closes))
	}
	if closes[0] != 100.5 || closes[1] != 101.5 {
		t.Errorf("unexpected closes: %v", closes)
	}
}

func TestKlineClosesRejectsShortRow(t *testing.T) {
	if _, err := klineCloses([]byte(`[[1,"2","3"]]`)); err == nil {
		t.Error("expected error for truncated kline row")
	}
}
