package analytics

import (
	"math"
	"testing"
	"time"

	"AnchorFolio/internal/domain/models"
)

func seriesFrom(symbol string, start time.Time, returns []float64) models.ReturnSeries {
	s := models.ReturnSeries{Symbol: symbol}
	for i, r := range returns {
		s.Points = append(s.Points, models.ReturnPoint{Date: start.AddDate(0, 0, i), Return: r})
	}
	return s
}

func TestMatrixFromSeriesPerfectCorrelation(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	base := []float64{0.01, -0.02, 0.03, -0.01, 0.02}
	double := make([]float64, len(base))
	inverse := make([]float64, len(base))
	for i, r := range base {
		double[i] = 2 * r
		inverse[i] = -r
	}
	syms := []string{"A", "B", "C"}
	m := MatrixFromSeries(syms, []models.ReturnSeries{
		seriesFrom("A", start, base),
		seriesFrom("B", start, double),
		seriesFrom("C", start, inverse),
	})

	if got := m.At("A", "A"); got != 1 {
		t.Fatalf("diagonal must be 1, got %v", got)
	}
	if got := m.At("A", "B"); math.Abs(got-1) > 1e-9 {
		t.Fatalf("scaled series must correlate 1, got %v", got)
	}
	if got := m.At("A", "C"); math.Abs(got+1) > 1e-9 {
		t.Fatalf("inverse series must correlate -1, got %v", got)
	}
}

func TestMatrixFromSeriesInsufficientOverlap(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := MatrixFromSeries([]string{"A", "B"}, []models.ReturnSeries{
		seriesFrom("A", start, []float64{0.01, 0.02}),
		seriesFrom("B", start.AddDate(0, 0, 10), []float64{0.01, 0.02}),
	})
	if got := m.At("A", "B"); !math.IsNaN(got) {
		t.Fatalf("disjoint dates must yield NaN, got %v", got)
	}
	// NaN cells are excluded from the aggregate, not counted as zero.
	if got := m.AveragePairwiseAbs(); got != 0 {
		t.Fatalf("no defined cells: expected 0, got %v", got)
	}
}

func TestAtUnknownSymbol(t *testing.T) {
	m := &CorrelationMatrix{Symbols: []string{"A"}, Cells: [][]float64{{1}}}
	if got := m.At("A", "Z"); !math.IsNaN(got) {
		t.Fatalf("unknown symbol must yield NaN, got %v", got)
	}
}

func testAssets() map[string]models.Asset {
	return map[string]models.Asset{
		"BTC": {Symbol: "BTC", Class: models.ClassReserveCrypto},
		"ETH": {Symbol: "ETH", Class: models.ClassCrypto},
		"SPY": {Symbol: "SPY", Class: models.ClassEquity},
		"GLD": {Symbol: "GLD", Class: models.ClassCommodity},
	}
}

func TestDiversificationScoreCategoryMonotonic(t *testing.T) {
	e := NewCorrelationEngine(nil, "BTC", testAssets())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Identical return structure so the correlation term is constant; only
	// category breadth differs.
	rets := []float64{0.01, -0.02, 0.015, -0.005, 0.02}
	crypto := []models.ReturnSeries{seriesFrom("BTC", start, rets), seriesFrom("ETH", start, rets)}
	mixed := []models.ReturnSeries{seriesFrom("BTC", start, rets), seriesFrom("SPY", start, rets)}

	narrow := e.ScoreFromSeries([]string{"BTC", "ETH"}, crypto)
	broad := e.ScoreFromSeries([]string{"BTC", "SPY"}, mixed)
	if broad <= narrow {
		t.Fatalf("adding a category must not decrease the score: %v <= %v", broad, narrow)
	}
}

func TestDiversificationScoreCorrelationMonotonic(t *testing.T) {
	e := NewCorrelationEngine(nil, "BTC", testAssets())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	base := []float64{0.01, -0.02, 0.015, -0.005, 0.02}
	same := make([]float64, len(base))
	copy(same, base)
	// weakly related to base: |corr| well below 1
	weak := []float64{0.01, 0.01, -0.01, -0.01, 0.0}

	correlated := e.ScoreFromSeries([]string{"BTC", "SPY"}, []models.ReturnSeries{
		seriesFrom("BTC", start, base), seriesFrom("SPY", start, same),
	})
	decorrelated := e.ScoreFromSeries([]string{"BTC", "SPY"}, []models.ReturnSeries{
		seriesFrom("BTC", start, base), seriesFrom("SPY", start, weak),
	})
	if decorrelated <= correlated {
		t.Fatalf("lower correlation must not decrease the score: %v <= %v", decorrelated, correlated)
	}
}

func TestDiversificationScoreBounds(t *testing.T) {
	e := NewCorrelationEngine(nil, "BTC", testAssets())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rets := []float64{0.01, -0.02, 0.015, -0.005, 0.02}
	score := e.ScoreFromSeries([]string{"BTC", "ETH"}, []models.ReturnSeries{
		seriesFrom("BTC", start, rets), seriesFrom("ETH", start, rets),
	})
	if score < 0 || score > 1 {
		t.Fatalf("score outside [0,1]: %v", score)
	}
}
