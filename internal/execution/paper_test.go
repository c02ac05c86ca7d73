package execution

import (
	"context"
	"testing"

	"pairs_go/internal/domain"
	"pairs_go/pkg/quant"
)

func newPaper(startingCash float64) (*PaperVenue, *MockVenue) {
	market := pricedMock()
	return NewPaperVenue(market, int64(quant.ToPriceMicros(startingCash))), market
}

func TestPaperBuyDrawsCash(t *testing.T) {
	paper, _ := newPaper(100)
	ctx := context.Background()

	fill, err := paper.PlaceOrder(ctx, "AAAUSDT", domain.SideBuy, quant.ToQtySats(1))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if fill.QtySats != quant.ToQtySats(1) {
		t.Errorf("fill qty: %s", fill.QtySats)
	}
	if got := paper.Holding("AAAUSDT"); got != quant.ToQtySats(1) {
		t.Errorf("holding after buy: %s", got)
	}

	// 100 - 40 leaves 60; a second 2-unit buy needs 80.
	if _, err := paper.PlaceOrder(ctx, "AAAUSDT", domain.SideBuy, quant.ToQtySats(2)); err == nil {
		t.Error("expected insufficient cash error")
	}
}

func TestPaperSellGoesShort(t *testing.T) {
	paper, _ := newPaper(100)
	ctx := context.Background()

	if _, err := paper.PlaceOrder(ctx, "AAAUSDT", domain.SideSell, quant.ToQtySats(1)); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if got := paper.Holding("AAAUSDT"); got != -quant.ToQtySats(1) {
		t.Errorf("expected negative inventory while short, got %s", got)
	}

	// Buying back flattens the inventory.
	if _, err := paper.PlaceOrder(ctx, "AAAUSDT", domain.SideBuy, quant.ToQtySats(1)); err != nil {
		t.Fatalf("buy back: %v", err)
	}
	if got := paper.Holding("AAAUSDT"); got != 0 {
		t.Errorf("expected flat inventory, got %s", got)
	}
}

func TestPaperLoanLedger(t *testing.T) {
	paper, _ := newPaper(100)
	ctx := context.Background()

	if err := paper.Borrow(ctx, "AAAUSDT", quant.ToQtySats(2)); err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	if got := paper.Loan("AAAUSDT"); got != quant.ToQtySats(2) {
		t.Errorf("loan after borrow: %s", got)
	}

	// Repayment above the outstanding amount is capped, not an error.
	if err := paper.Repay(ctx, "AAAUSDT", quant.ToQtySats(5)); err != nil {
		t.Fatalf("Repay: %v", err)
	}
	if got := paper.Loan("AAAUSDT"); got != 0 {
		t.Errorf("loan after over-repay: %s", got)
	}
}

func TestPaperRejectsNonPositiveQuantities(t *testing.T) {
	paper, _ := newPaper(100)
	ctx := context.Background()

	if _, err := paper.PlaceOrder(ctx, "AAAUSDT", domain.SideBuy, 0); err == nil {
		t.Error("zero-qty order must fail")
	}
	if err := paper.Borrow(ctx, "AAAUSDT", 0); err == nil {
		t.Error("zero-qty borrow must fail")
	}
}

func TestPaperBalanceTracksCash(t *testing.T) {
	paper, _ := newPaper(100)
	ctx := context.Background()

	if _, err := paper.PlaceOrder(ctx, "AAAUSDT", domain.SideBuy, quant.ToQtySats(1)); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	snap, err := paper.GetMarginBalance(ctx)
	if err != nil {
		t.Fatalf("GetMarginBalance: %v", err)
	}
	if snap.NetAssetBTC != 60 {
		t.Errorf("expected 60 after a 40 buy from 100, got %f", snap.NetAssetBTC)
	}
}
