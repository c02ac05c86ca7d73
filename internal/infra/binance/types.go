package binance

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"pairs_go/internal/domain"
	"pairs_go/pkg/quant"
)

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type marginOrderResponse struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	TransactTime        int64  `json:"transactTime"`
	Status              string `json:"status"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
}

type marginLoanResponse struct {
	TranID int64 `json:"tranId"`
}

type marginAccountResponse struct {
	TotalNetAssetOfBTC string `json:"totalNetAssetOfBtc"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("binance: code %d: %s", e.Code, e.Message)
}

// parsePriceMicros converts a decimal price string into fixed-point micros.
func parsePriceMicros(s string) (quant.PriceMicros, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	return quant.PriceMicros(d.Shift(6).IntPart()), nil
}

// parseQtySats converts a decimal quantity string into fixed-point sats.
func parseQtySats(s string) (quant.QtySats, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse qty %q: %w", s, err)
	}
	return quant.QtySats(d.Shift(8).IntPart()), nil
}

// formatQty renders a sats quantity as the decimal string the API expects.
func formatQty(qty quant.QtySats) string {
	return decimal.New(int64(qty), -8).String()
}

// fillFromOrder derives the average fill from an order response: executed
// base quantity, with the price averaged from the cumulative quote amount.
func fillFromOrder(resp *marginOrderResponse, side domain.Side) (domain.Fill, error) {
	qty, err := parseQtySats(resp.ExecutedQty)
	if err != nil {
		return domain.Fill{}, err
	}
	if qty == 0 {
		return domain.Fill{}, fmt.Errorf("order %d for %s executed zero quantity (status %s)", resp.OrderID, resp.Symbol, resp.Status)
	}

	quote, err := decimal.NewFromString(resp.CummulativeQuoteQty)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("parse quote qty %q: %w", resp.CummulativeQuoteQty, err)
	}
	base := decimal.New(int64(qty), -8)
	avg := quote.Div(base)

	return domain.Fill{
		Symbol:      resp.Symbol,
		Side:        side,
		QtySats:     qty,
		PriceMicros: quant.PriceMicros(avg.Shift(6).IntPart()),
		TsUnixM:     quant.TimeStamp(resp.TransactTime),
	}, nil
}

// klineCloses extracts close prices from the raw klines payload, which is a
// JSON array of arrays with the close at index 4.
func klineCloses(raw []byte) ([]float64, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	closes := make([]float64, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			return nil, fmt.Errorf("kline row has %d fields", len(row))
		}
		var s string
		if err := json.Unmarshal(row[4], &s); err != nil {
			return nil, fmt.Errorf("decode kline close: %w", err)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("parse kline close %q: %w", s, err)
		}
		closes = append(closes, d.InexactFloat64())
	}
	return closes, nil
}
