package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"AnchorFolio/internal/domain/models"
	"AnchorFolio/internal/services/backtest"
)

func newBacktestFixture(t *testing.T) (*BacktestUseCase, *fakeMetrics) {
	t.Helper()
	start := time.Now().UTC().AddDate(0, 0, -90).Truncate(24 * time.Hour)
	history := &fakeHistory{candles: map[string][]models.Candle{
		"BTC": driftingCandles(start, 60),
		"ETH": choppingCandles(start, 60),
	}}
	metrics := newFakeMetrics()
	uc := NewBacktestUseCase(backtest.NewEngine(history), metrics, testLogger(t), 90)
	return uc, metrics
}

func TestBacktestRun(t *testing.T) {
	uc, metrics := newBacktestFixture(t)

	res, err := uc.Run(context.Background(), map[string]float64{"BTC": 0.6, "ETH": 0.4}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Days != 59 {
		t.Fatalf("60 candles yield 59 daily returns, got %d", res.Days)
	}
	if res.TotalReturn <= 0 {
		t.Fatalf("drifting majority must produce a positive return, got %v", res.TotalReturn)
	}
	if len(res.EquityCurve) != res.Days {
		t.Fatalf("equity curve length: got %d, want %d", len(res.EquityCurve), res.Days)
	}
	if got := metrics.ops["backtest"]; got != 1 {
		t.Fatalf("operation metric: got %d", got)
	}
}

func TestBacktestRunRejectsBadWeights(t *testing.T) {
	uc, metrics := newBacktestFixture(t)

	_, err := uc.Run(context.Background(), map[string]float64{"BTC": 0.5}, 30)
	if !errors.Is(err, models.ErrInvalidAllocation) {
		t.Fatalf("expected ErrInvalidAllocation, got %v", err)
	}
	if got := metrics.errs["backtest"]; got != 1 {
		t.Fatalf("error metric: got %d", got)
	}
}
