package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"AnchorFolio/internal/domain/models"
	"AnchorFolio/internal/service/cache"
	"AnchorFolio/internal/services/analytics"
)

// driftingCandles alternates +1.2%/-0.8% daily moves: every risk statistic is
// defined, the tail and drawdown stay mild, and the drift keeps the Sharpe
// ratio comfortably positive.
func driftingCandles(start time.Time, n int) []models.Candle {
	out := make([]models.Candle, n)
	price := 100.0
	for i := range out {
		out[i] = models.Candle{Bucket: start.AddDate(0, 0, i), Close: price}
		if i%2 == 0 {
			price *= 1.012
		} else {
			price *= 0.992
		}
	}
	return out
}

// choppingCandles alternates +1%/-1% with no drift, so returns average zero.
func choppingCandles(start time.Time, n int) []models.Candle {
	out := make([]models.Candle, n)
	price := 100.0
	for i := range out {
		out[i] = models.Candle{Bucket: start.AddDate(0, 0, i), Close: price}
		if i%2 == 0 {
			price *= 1.01
		} else {
			price *= 0.99
		}
	}
	return out
}

func newRiskFixture(t *testing.T) (*RiskReportUseCase, *fakeMetrics) {
	t.Helper()
	start := time.Now().UTC().AddDate(0, 0, -90).Truncate(24 * time.Hour)
	history := &fakeHistory{candles: map[string][]models.Candle{
		"BTC":   driftingCandles(start, 60),
		"CHOP":  choppingCandles(start, 60),
		"EMPTY": {{Bucket: start, Close: 100}},
	}}
	assets := map[string]models.Asset{
		"BTC": {Symbol: "BTC", Class: models.ClassReserveCrypto},
		"ETH": {Symbol: "ETH", Class: models.ClassCrypto},
	}
	risk, err := analytics.NewRiskEngine(analytics.DefaultRiskConfig())
	if err != nil {
		t.Fatalf("risk engine: %v", err)
	}
	metrics := newFakeMetrics()
	uc := NewRiskReportUseCase(
		analytics.NewCorrelationEngine(history, "BTC", assets),
		risk,
		analytics.NewBiasDetector(analytics.DefaultBiasConfig()),
		analytics.NewFactorAnalyzer(),
		metrics,
		testLogger(t),
		cache.NewTTLCache(),
		time.Minute,
		30,
	)
	return uc, metrics
}

func TestBuildReportHold(t *testing.T) {
	uc, _ := newRiskFixture(t)
	report, err := uc.BuildReport(context.Background(), RiskReportParams{Symbol: "BTC"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Symbol != "BTC" || report.GeneratedAt.IsZero() {
		t.Fatalf("report header: %+v", report)
	}
	// Mild chop with drift sits inside every REDUCE and REVIEW threshold.
	if report.Recommendation != models.RecommendHold {
		t.Fatalf("expected HOLD, got %s", report.Recommendation)
	}
	if report.CVaR95 >= 0 {
		t.Fatalf("tail of a chopping series is negative, got %v", report.CVaR95)
	}
	if report.Volatility <= 0 {
		t.Fatalf("expected positive volatility, got %v", report.Volatility)
	}
}

func TestBuildReportCached(t *testing.T) {
	uc, metrics := newRiskFixture(t)
	p := RiskReportParams{Symbol: "BTC"}
	if _, err := uc.BuildReport(context.Background(), p); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if _, err := uc.BuildReport(context.Background(), p); err != nil {
		t.Fatalf("second build: %v", err)
	}
	if got := metrics.ops["risk_report"]; got != 1 {
		t.Fatalf("second call must hit the cache, computed %d times", got)
	}
}

func TestBuildReportAllocationReview(t *testing.T) {
	uc, metrics := newRiskFixture(t)
	p := RiskReportParams{
		Symbol:  "BTC",
		Weights: map[string]float64{"BTC": 0.55, "ETH": 0.25, "SPY": 0.2},
	}
	report, err := uc.BuildReport(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.BiasFlags) == 0 {
		t.Fatalf("over-cap holding must be flagged")
	}
	if report.Recommendation != models.RecommendReview {
		t.Fatalf("expected REVIEW, got %s", report.Recommendation)
	}
	// Reports with allocation context bypass the cache.
	if _, err := uc.BuildReport(context.Background(), p); err != nil {
		t.Fatalf("second build: %v", err)
	}
	if got := metrics.ops["risk_report"]; got != 2 {
		t.Fatalf("weighted reports must not be cached, computed %d times", got)
	}
}

func TestBuildReportLowSharpeReview(t *testing.T) {
	uc, _ := newRiskFixture(t)
	report, err := uc.BuildReport(context.Background(), RiskReportParams{Symbol: "CHOP"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Driftless chop has a Sharpe near zero; the tail stays mild so the
	// report flags efficiency, not risk.
	if report.Recommendation != models.RecommendReview {
		t.Fatalf("expected REVIEW, got %s", report.Recommendation)
	}
}

func TestBuildReportInsufficientHistory(t *testing.T) {
	uc, _ := newRiskFixture(t)
	_, err := uc.BuildReport(context.Background(), RiskReportParams{Symbol: "EMPTY"})
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestBuildReportRequiresSymbol(t *testing.T) {
	uc, _ := newRiskFixture(t)
	if _, err := uc.BuildReport(context.Background(), RiskReportParams{}); err == nil {
		t.Fatalf("expected error for missing symbol")
	}
}

func TestFactorExposureAgainstSelf(t *testing.T) {
	uc, metrics := newRiskFixture(t)
	// A single-asset portfolio regressed on its own return series is an exact
	// fit with unit beta.
	model, err := uc.FactorExposure(context.Background(), FactorExposureParams{
		Weights: map[string]float64{"BTC": 1},
		Factors: []string{"BTC"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exp := model.Exposures["BTC"]
	if exp.Beta < 0.999999 || exp.Beta > 1.000001 {
		t.Fatalf("self-regression beta: got %v, want 1", exp.Beta)
	}
	if model.RSquared < 0.999999 {
		t.Fatalf("self-regression r-squared: got %v", model.RSquared)
	}
	if got := metrics.ops["factor_exposure"]; got != 1 {
		t.Fatalf("operation metric: got %d", got)
	}
}

func TestFactorExposureValidation(t *testing.T) {
	uc, _ := newRiskFixture(t)
	ctx := context.Background()

	if _, err := uc.FactorExposure(ctx, FactorExposureParams{Factors: []string{"BTC"}}); err == nil {
		t.Fatalf("expected error for missing weights")
	}
	if _, err := uc.FactorExposure(ctx, FactorExposureParams{Weights: map[string]float64{"BTC": 1}}); err == nil {
		t.Fatalf("expected error for missing factors")
	}
	p := FactorExposureParams{Weights: map[string]float64{"BTC": 0.5}, Factors: []string{"CHOP"}}
	if _, err := uc.FactorExposure(ctx, p); !errors.Is(err, models.ErrInvalidAllocation) {
		t.Fatalf("weights summing to 0.5 must be rejected, got %v", err)
	}
}

func TestFactorExposureInsufficientOverlap(t *testing.T) {
	uc, metrics := newRiskFixture(t)
	p := FactorExposureParams{
		Weights: map[string]float64{"BTC": 1},
		Factors: []string{"EMPTY"},
	}
	if _, err := uc.FactorExposure(context.Background(), p); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("factor without history must surface ErrInsufficientData, got %v", err)
	}
	if got := metrics.errs["factor_exposure"]; got != 1 {
		t.Fatalf("error metric: got %d", got)
	}
}
