package analytics

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"AnchorFolio/internal/domain/models"
)

// factorReturns draws a deterministic daily return series.
func factorReturns(seed int64, n int, scale float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = scale * rng.NormFloat64()
	}
	return out
}

func TestAnalyzeExactLinearCombination(t *testing.T) {
	const n = 60
	f1 := factorReturns(1, n, 0.01)
	f2 := factorReturns(2, n, 0.015)
	const alpha, b1, b2 = 0.0002, 0.8, -0.3
	portfolio := make([]float64, n)
	for i := 0; i < n; i++ {
		portfolio[i] = alpha + b1*f1[i] + b2*f2[i]
	}

	model, err := NewFactorAnalyzer().Analyze(portfolio, []string{"market", "rates"}, [][]float64{f1, f2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.Observations != n {
		t.Fatalf("observations: got %d", model.Observations)
	}
	if got := model.Exposures["market"].Beta; math.Abs(got-b1) > 1e-6 {
		t.Fatalf("market beta: got %v, want %v", got, b1)
	}
	if got := model.Exposures["rates"].Beta; math.Abs(got-b2) > 1e-6 {
		t.Fatalf("rates beta: got %v, want %v", got, b2)
	}
	if got := model.Alpha.Beta; math.Abs(got-alpha) > 1e-6 {
		t.Fatalf("alpha: got %v, want %v", got, alpha)
	}
	if math.Abs(model.AlphaAnnualized-alpha*252) > 1e-4 {
		t.Fatalf("annualized alpha: got %v", model.AlphaAnnualized)
	}
	if model.RSquared < 0.999999 {
		t.Fatalf("exact fit must have r-squared near 1, got %v", model.RSquared)
	}
	if !model.Exposures["market"].Significant || !model.Exposures["rates"].Significant {
		t.Fatalf("exact exposures must be significant: %+v", model.Exposures)
	}
	if math.Abs(model.ExplainedRatio-1) > 1e-6 {
		t.Fatalf("factors explain all variance in an exact fit, got %v", model.ExplainedRatio)
	}
	if model.ResidualVol > 1e-6 {
		t.Fatalf("residual volatility must vanish, got %v", model.ResidualVol)
	}
	contribSum := model.Contributions["market"] + model.Contributions["rates"]
	if math.Abs(contribSum-model.ExplainedRatio) > 1e-9 {
		t.Fatalf("contributions must sum to the explained ratio: %v vs %v", contribSum, model.ExplainedRatio)
	}
}

func TestAnalyzeNoisyFit(t *testing.T) {
	const n = 120
	f1 := factorReturns(3, n, 0.01)
	noise := factorReturns(4, n, 0.005)
	portfolio := make([]float64, n)
	for i := 0; i < n; i++ {
		portfolio[i] = 0.5*f1[i] + noise[i]
	}

	model, err := NewFactorAnalyzer().Analyze(portfolio, []string{"market"}, [][]float64{f1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exp := model.Exposures["market"]
	if math.Abs(exp.Beta-0.5) > 0.25 {
		t.Fatalf("market beta: got %v, want near 0.5", exp.Beta)
	}
	if !exp.Significant {
		t.Fatalf("dominant factor must be significant: %+v", exp)
	}
	if model.RSquared <= 0 || model.RSquared >= 1 {
		t.Fatalf("noisy fit must have partial r-squared, got %v", model.RSquared)
	}
	if model.ResidualVol <= 0 {
		t.Fatalf("noise must leave residual volatility, got %v", model.ResidualVol)
	}
	if model.ExplainedRatio <= 0 || model.ExplainedRatio >= 1 {
		t.Fatalf("explained ratio must be partial, got %v", model.ExplainedRatio)
	}
	if model.AdjRSquared >= model.RSquared {
		t.Fatalf("adjusted r-squared must not exceed r-squared: %v vs %v", model.AdjRSquared, model.RSquared)
	}
}

func TestAnalyzeInsufficientData(t *testing.T) {
	short := factorReturns(5, 10, 0.01)
	_, err := NewFactorAnalyzer().Analyze(short, []string{"market"}, [][]float64{short})
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("10 observations must be rejected, got %v", err)
	}
}

func TestAnalyzeShapeMismatch(t *testing.T) {
	a := NewFactorAnalyzer()
	portfolio := factorReturns(6, 40, 0.01)

	if _, err := a.Analyze(portfolio, nil, nil); err == nil {
		t.Fatalf("expected error for zero factors")
	}
	if _, err := a.Analyze(portfolio, []string{"market"}, [][]float64{factorReturns(7, 30, 0.01)}); err == nil {
		t.Fatalf("expected error for misaligned factor length")
	}
}
