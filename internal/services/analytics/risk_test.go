package analytics

import (
	"errors"
	"math"
	"testing"

	"AnchorFolio/internal/domain/models"
)

func newTestRiskEngine(t *testing.T) *RiskEngine {
	t.Helper()
	e, err := NewRiskEngine(DefaultRiskConfig())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return e
}

func TestRiskEngineRejectsBadConfidence(t *testing.T) {
	if _, err := NewRiskEngine(RiskConfig{Confidence: 1.0}); err == nil {
		t.Fatalf("expected error for confidence 1.0")
	}
	if _, err := NewRiskEngine(RiskConfig{Confidence: 0}); err == nil {
		t.Fatalf("expected error for confidence 0")
	}
}

func TestHistoricalCVaRWorstTail(t *testing.T) {
	e := newTestRiskEngine(t)
	// 20 observations, alpha 0.05 -> ceil(1) = worst single observation.
	returns := make([]float64, 20)
	for i := range returns {
		returns[i] = 0.01
	}
	returns[7] = -0.12
	got, err := e.HistoricalCVaR(returns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != -0.12 {
		t.Fatalf("expected worst observation -0.12, got %v", got)
	}
}

func TestCVaRNotAboveMean(t *testing.T) {
	e := newTestRiskEngine(t)
	returns := []float64{0.01, -0.02, 0.03, -0.04, 0.02, 0.01, -0.01, 0.005, -0.015, 0.02}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	hist, err := e.HistoricalCVaR(returns)
	if err != nil {
		t.Fatalf("historical: %v", err)
	}
	if hist > mean {
		t.Fatalf("historical CVaR %v above mean %v", hist, mean)
	}
	param, err := e.ParametricCVaR(returns)
	if err != nil {
		t.Fatalf("parametric: %v", err)
	}
	if param > mean {
		t.Fatalf("parametric CVaR %v above mean %v", param, mean)
	}
}

func TestCVaRInsufficientData(t *testing.T) {
	e := newTestRiskEngine(t)
	for _, returns := range [][]float64{nil, {0.01}} {
		if _, err := e.HistoricalCVaR(returns); !errors.Is(err, models.ErrInsufficientData) {
			t.Fatalf("historical: expected ErrInsufficientData, got %v", err)
		}
		if _, err := e.ParametricCVaR(returns); !errors.Is(err, models.ErrInsufficientData) {
			t.Fatalf("parametric: expected ErrInsufficientData, got %v", err)
		}
		if _, err := e.MonteCarloCVaR(returns); !errors.Is(err, models.ErrInsufficientData) {
			t.Fatalf("monte carlo: expected ErrInsufficientData, got %v", err)
		}
	}
	if _, err := e.HistoricalCVaR([]float64{0.01, -0.02}); err != nil {
		t.Fatalf("two observations must suffice: %v", err)
	}
}

func TestMonteCarloCVaRDeterministicAndNearParametric(t *testing.T) {
	e := newTestRiskEngine(t)
	returns := []float64{0.012, -0.03, 0.004, -0.011, 0.02, -0.006, 0.015, -0.024, 0.009, -0.001,
		0.018, -0.014, 0.007, -0.009, 0.011, -0.02, 0.013, -0.005, 0.003, -0.016}

	a, err := e.MonteCarloCVaR(returns)
	if err != nil {
		t.Fatalf("monte carlo: %v", err)
	}
	b, _ := e.MonteCarloCVaR(returns)
	if a != b {
		t.Fatalf("fixed seed must be reproducible: %v vs %v", a, b)
	}

	param, _ := e.ParametricCVaR(returns)
	// Both estimate the same normal tail; allow sampling noise.
	if math.Abs(a-param) > 0.25*math.Abs(param) {
		t.Fatalf("monte carlo %v too far from parametric %v", a, param)
	}
}

func TestMaxDrawdown(t *testing.T) {
	e := newTestRiskEngine(t)
	// 100 -> 110 -> 88 is a 20% drawdown from the peak.
	returns := []float64{0.10, -0.20}
	got, err := e.MaxDrawdown(returns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-(-0.20)) > 1e-12 {
		t.Fatalf("expected -0.20, got %v", got)
	}

	up, _ := e.MaxDrawdown([]float64{0.01, 0.02, 0.03})
	if up != 0 {
		t.Fatalf("monotonic series has zero drawdown, got %v", up)
	}
}

func TestSharpeFlatSeriesZero(t *testing.T) {
	e := newTestRiskEngine(t)
	got, err := e.SharpeRatio([]float64{0.01, 0.01, 0.01})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("flat series sharpe must be 0, got %v", got)
	}
}

func TestAnnualization(t *testing.T) {
	e := newTestRiskEngine(t)
	returns := []float64{0.001, 0.002, -0.001, 0.003}

	ret, err := e.AnnualizedReturn(returns)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if math.Abs(ret-0.00125*252) > 1e-12 {
		t.Fatalf("annualized return: got %v", ret)
	}

	vol, err := e.AnnualizedVolatility(returns)
	if err != nil {
		t.Fatalf("volatility: %v", err)
	}
	if vol <= 0 {
		t.Fatalf("expected positive volatility, got %v", vol)
	}
}
