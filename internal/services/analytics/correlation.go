package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"AnchorFolio/internal/domain/models"
	domrepo "AnchorFolio/internal/domain/repository"

	"gonum.org/v1/gonum/stat"
)

// minOverlap is the minimum number of shared observations required for a
// pairwise correlation cell to be defined.
const minOverlap = 2

// CorrelationMatrix holds pairwise Pearson correlations in symbol order.
// Cells with fewer than minOverlap shared observations are NaN and excluded
// from aggregate statistics.
type CorrelationMatrix struct {
	Symbols []string
	Cells   [][]float64
}

// At returns the correlation between two symbols, NaN if undefined.
func (m *CorrelationMatrix) At(a, b string) float64 {
	ia, ib := -1, -1
	for i, s := range m.Symbols {
		if s == a {
			ia = i
		}
		if s == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return math.NaN()
	}
	return m.Cells[ia][ib]
}

// AveragePairwiseAbs returns the mean absolute off-diagonal correlation,
// skipping undefined cells. Zero when no cell is defined.
func (m *CorrelationMatrix) AveragePairwiseAbs() float64 {
	sum, n := 0.0, 0
	for i := range m.Cells {
		for j := i + 1; j < len(m.Cells); j++ {
			if c := m.Cells[i][j]; !math.IsNaN(c) {
				sum += math.Abs(c)
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// CorrelationEngine computes pairwise correlations and diversification
// scores over historical return series.
type CorrelationEngine struct {
	history domrepo.PriceHistory
	tf      domrepo.Timeframe
	anchor  string
	assets  map[string]models.Asset
}

// NewCorrelationEngine builds an engine reading candles from history. The
// assets map supplies asset classes for category breadth scoring.
func NewCorrelationEngine(history domrepo.PriceHistory, anchor string, assets map[string]models.Asset) *CorrelationEngine {
	return &CorrelationEngine{
		history: history,
		tf:      domrepo.DefaultTimeframe(),
		anchor:  anchor,
		assets:  assets,
	}
}

// Anchor returns the engine's anchor symbol.
func (e *CorrelationEngine) Anchor() string { return e.anchor }

func (e *CorrelationEngine) fetchReturns(ctx context.Context, symbols []string, lookbackDays int) ([]models.ReturnSeries, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -lookbackDays)
	out := make([]models.ReturnSeries, 0, len(symbols))
	for _, sym := range symbols {
		candles, err := e.history.GetCandles(ctx, sym, from, to, e.tf)
		if err != nil {
			return nil, fmt.Errorf("history %s: %w", sym, err)
		}
		out = append(out, models.ReturnsFromCandles(sym, candles))
	}
	return out, nil
}

// ReturnSeries fetches aligned-ready return series for the symbols over the
// trailing window, in symbol order.
func (e *CorrelationEngine) ReturnSeries(ctx context.Context, symbols []string, lookbackDays int) ([]models.ReturnSeries, error) {
	return e.fetchReturns(ctx, symbols, lookbackDays)
}

// CorrelationMatrix computes the pairwise Pearson correlation matrix of the
// symbols' aligned periodic returns over the trailing window.
func (e *CorrelationEngine) CorrelationMatrix(ctx context.Context, symbols []string, lookbackDays int) (*CorrelationMatrix, error) {
	series, err := e.fetchReturns(ctx, symbols, lookbackDays)
	if err != nil {
		return nil, err
	}
	return MatrixFromSeries(symbols, series), nil
}

// MatrixFromSeries is the pure correlation computation over prepared series.
// Pairs with fewer than minOverlap shared dates yield NaN cells.
func MatrixFromSeries(symbols []string, series []models.ReturnSeries) *CorrelationMatrix {
	n := len(symbols)
	cells := make([][]float64, n)
	for i := range cells {
		cells[i] = make([]float64, n)
		cells[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			xs, ys := models.AlignReturns(series[i], series[j])
			c := math.NaN()
			if len(xs) >= minOverlap {
				c = stat.Correlation(xs, ys, nil)
			}
			cells[i][j] = c
			cells[j][i] = c
		}
	}
	return &CorrelationMatrix{Symbols: append([]string(nil), symbols...), Cells: cells}
}

// AnchorCorrelations returns each symbol's correlation against the anchor
// asset. Undefined pairs are omitted from the result.
func (e *CorrelationEngine) AnchorCorrelations(ctx context.Context, symbols []string, lookbackDays int) (map[string]float64, error) {
	withAnchor := symbols
	found := false
	for _, s := range symbols {
		if s == e.anchor {
			found = true
			break
		}
	}
	if !found {
		withAnchor = append([]string{e.anchor}, symbols...)
	}
	m, err := e.CorrelationMatrix(ctx, withAnchor, lookbackDays)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, s := range symbols {
		if s == e.anchor {
			continue
		}
		if c := m.At(s, e.anchor); !math.IsNaN(c) {
			out[s] = c
		}
	}
	return out, nil
}

// LowCorrelationAssets returns the subset of symbols whose anchor correlation
// is below maxCorrelation, in lexical symbol order.
func (e *CorrelationEngine) LowCorrelationAssets(ctx context.Context, symbols []string, maxCorrelation float64, lookbackDays int) ([]string, error) {
	corrs, err := e.AnchorCorrelations(ctx, symbols, lookbackDays)
	if err != nil {
		return nil, err
	}
	var out []string
	for sym, c := range corrs {
		if c < maxCorrelation {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Diversification score weighting: category breadth dominates slightly over
// decorrelation. Both terms are monotonic as required.
const (
	categoryWeight    = 0.6
	correlationWeight = 0.4
	maxScoredClasses  = 4
)

// DiversificationScore combines distinct asset-category count with average
// pairwise absolute correlation into a [0,1] score. Adding a category never
// decreases the score; raising average correlation never increases it.
func (e *CorrelationEngine) DiversificationScore(ctx context.Context, symbols []string, lookbackDays int) (float64, error) {
	m, err := e.CorrelationMatrix(ctx, symbols, lookbackDays)
	if err != nil {
		return 0, err
	}
	return e.scoreFromMatrix(symbols, m), nil
}

func (e *CorrelationEngine) scoreFromMatrix(symbols []string, m *CorrelationMatrix) float64 {
	classes := make(map[models.AssetClass]struct{})
	for _, s := range symbols {
		if a, ok := e.assets[s]; ok {
			classes[a.Class] = struct{}{}
		}
	}
	breadth := math.Min(1, float64(len(classes))/maxScoredClasses)
	avgAbs := m.AveragePairwiseAbs()
	return categoryWeight*breadth + correlationWeight*(1-avgAbs)
}

// ScoreFromSeries scores prepared series without a repository round-trip.
func (e *CorrelationEngine) ScoreFromSeries(symbols []string, series []models.ReturnSeries) float64 {
	return e.scoreFromMatrix(symbols, MatrixFromSeries(symbols, series))
}
