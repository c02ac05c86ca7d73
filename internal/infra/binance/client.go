package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pairs_go/internal/domain"
	"pairs_go/internal/infra"
	"pairs_go/pkg/quant"
)

const (
	pathTickerPrice   = "/api/v3/ticker/price"
	pathKlines        = "/api/v3/klines"
	pathMarginOrder   = "/sapi/v1/margin/order"
	pathMarginLoan    = "/sapi/v1/margin/loan"
	pathMarginRepay   = "/sapi/v1/margin/repay"
	pathMarginAccount = "/sapi/v1/margin/account"

	maxRetries = 3
)

// Client talks to the Binance margin REST API and satisfies domain.Venue.
type Client struct {
	baseURL    string
	quoteAsset string
	httpClient *http.Client
	signer     *Signer
	breaker    *infra.CircuitBreaker
	stream     *PriceStream
	logger     *slog.Logger
}

// NewClient builds a venue client from configuration. When the stream is
// enabled, live prices come from the websocket cache with REST fallback.
func NewClient(cfg *infra.Config) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.API.Binance.RestURL, "/"),
		quoteAsset: cfg.API.Binance.QuoteAsset,
		httpClient: &http.Client{Timeout: time.Duration(cfg.API.Binance.TimeoutSec) * time.Second},
		signer:     NewSigner(cfg.API.Binance.APIKey, cfg.API.Binance.SecretKey),
		breaker:    infra.NewCircuitBreaker("binance"),
		logger:     slog.Default().With("component", "binance"),
	}
	if cfg.API.Binance.UseStream {
		c.stream = NewPriceStream(cfg.API.Binance.WSURL, c.logger)
	}
	return c
}

// StartStream launches the websocket price stream for the given symbols.
// It is a no-op when streaming is disabled.
func (c *Client) StartStream(ctx context.Context, symbols []string) {
	if c.stream == nil {
		return
	}
	c.stream.Start(ctx, symbols)
}

// GetPrice returns the current price for a symbol. A fresh streamed price is
// preferred; otherwise the REST ticker endpoint is queried.
func (c *Client) GetPrice(ctx context.Context, symbol string) (quant.PriceMicros, error) {
	if c.stream != nil {
		if px, ok := c.stream.Price(symbol); ok {
			return px, nil
		}
	}

	params := url.Values{}
	params.Set("symbol", symbol)

	var resp tickerPriceResponse
	if err := c.doPublic(ctx, pathTickerPrice, params, &resp); err != nil {
		return 0, err
	}
	return parsePriceMicros(resp.Price)
}

// GetHistoricalPrices returns the last n one-minute close prices for a
// symbol, oldest first.
func (c *Client) GetHistoricalPrices(ctx context.Context, symbol string, n int) ([]float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", "1m")
	params.Set("limit", fmt.Sprintf("%d", n))

	raw, err := c.doPublicRaw(ctx, pathKlines, params)
	if err != nil {
		return nil, err
	}
	return klineCloses(raw)
}

// PlaceOrder submits a market order on the cross-margin account and returns
// the resulting fill.
func (c *Client) PlaceOrder(ctx context.Context, symbol string, side domain.Side, qty quant.QtySats) (domain.Fill, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(side))
	params.Set("type", "MARKET")
	params.Set("quantity", formatQty(qty))
	params.Set("newClientOrderId", "pairs-"+uuid.NewString())
	params.Set("newOrderRespType", "FULL")

	var resp marginOrderResponse
	if err := c.doSigned(ctx, http.MethodPost, pathMarginOrder, params, &resp); err != nil {
		return domain.Fill{}, err
	}
	fill, err := fillFromOrder(&resp, side)
	if err != nil {
		return domain.Fill{}, err
	}
	c.logger.Info("order filled",
		"symbol", symbol,
		"side", side,
		"qty", fill.QtySats.String(),
		"price", fill.PriceMicros.String())
	return fill, nil
}

// Borrow takes a margin loan for the base asset of the given symbol.
func (c *Client) Borrow(ctx context.Context, symbol string, qty quant.QtySats) error {
	params := url.Values{}
	params.Set("asset", c.baseAsset(symbol))
	params.Set("amount", formatQty(qty))

	var resp marginLoanResponse
	if err := c.doSigned(ctx, http.MethodPost, pathMarginLoan, params, &resp); err != nil {
		return err
	}
	c.logger.Info("margin loan taken", "asset", c.baseAsset(symbol), "amount", formatQty(qty), "tran_id", resp.TranID)
	return nil
}

// Repay returns a margin loan for the base asset of the given symbol.
func (c *Client) Repay(ctx context.Context, symbol string, qty quant.QtySats) error {
	params := url.Values{}
	params.Set("asset", c.baseAsset(symbol))
	params.Set("amount", formatQty(qty))

	var resp marginLoanResponse
	if err := c.doSigned(ctx, http.MethodPost, pathMarginRepay, params, &resp); err != nil {
		return err
	}
	c.logger.Info("margin loan repaid", "asset", c.baseAsset(symbol), "amount", formatQty(qty), "tran_id", resp.TranID)
	return nil
}

// GetMarginBalance returns the cross-margin account net asset value.
func (c *Client) GetMarginBalance(ctx context.Context) (domain.BalanceSnapshot, error) {
	var resp marginAccountResponse
	if err := c.doSigned(ctx, http.MethodGet, pathMarginAccount, url.Values{}, &resp); err != nil {
		return domain.BalanceSnapshot{}, err
	}
	d, err := decimal.NewFromString(resp.TotalNetAssetOfBTC)
	if err != nil {
		return domain.BalanceSnapshot{}, fmt.Errorf("parse net asset %q: %w", resp.TotalNetAssetOfBTC, err)
	}
	return domain.BalanceSnapshot{NetAssetBTC: d.InexactFloat64()}, nil
}

// Close stops the stream and wipes credentials.
func (c *Client) Close() error {
	if c.stream != nil {
		c.stream.Stop()
	}
	c.signer.Wipe()
	return nil
}

// baseAsset strips the quote asset suffix from a symbol, so BTCUSDT with
// quote USDT yields BTC.
func (c *Client) baseAsset(symbol string) string {
	return strings.TrimSuffix(symbol, c.quoteAsset)
}

func (c *Client) doPublic(ctx context.Context, path string, params url.Values, out any) error {
	raw, err := c.doPublicRaw(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) doPublicRaw(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return c.doRequest(ctx, http.MethodGet, path, params.Encode(), false)
}

func (c *Client) doSigned(ctx context.Context, method, path string, params url.Values, out any) error {
	raw, err := c.doRequest(ctx, method, path, c.signer.Sign(params), true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// doRequest performs an HTTP call with retry on transient failures. Orders
// and loans go through the same path; the circuit breaker guards all of it.
func (c *Client) doRequest(ctx context.Context, method, path, query string, signed bool) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, fmt.Errorf("binance: circuit breaker open for %s", path)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(infra.CalculateBackoff(attempt - 1)):
			}
		}

		body, retryable, err := c.doOnce(ctx, method, path, query, signed)
		if err == nil {
			c.breaker.RecordSuccess()
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		c.logger.Warn("request failed, retrying", "path", path, "attempt", attempt+1, "error", err)
	}

	c.breaker.RecordFailure()
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path, query string, signed bool) (body []byte, retryable bool, err error) {
	u := c.baseURL + path
	if query != "" {
		u += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, false, err
	}
	if signed {
		req.Header.Set("X-MBX-APIKEY", c.signer.APIKey())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("binance: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("binance: read %s response: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &apiError{}
		if json.Unmarshal(body, apiErr) == nil && apiErr.Message != "" {
			return nil, resp.StatusCode >= 500, apiErr
		}
		return nil, resp.StatusCode >= 500, fmt.Errorf("binance: %s returned status %d", path, resp.StatusCode)
	}
	return body, false, nil
}
