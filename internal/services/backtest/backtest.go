package backtest

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

const (
	// weightSumTolerance is looser than the optimizer's epsilon; hand-typed
	// allocations are accepted as long as they roughly sum to one.
	weightSumTolerance = 1e-3
	periodsPerYear     = 252
	minObservations    = 2
)

// Result summarizes a buy-and-hold replay of a fixed-weight allocation.
// Returns and volatility are annualized from daily observations; the equity
// curve starts at 1.
type Result struct {
	TotalReturn      float64            `json:"total_return"`
	AnnualizedReturn float64            `json:"annualized_return"`
	Volatility       float64            `json:"volatility"`
	SharpeRatio      float64            `json:"sharpe_ratio"`
	MaxDrawdown      float64            `json:"max_drawdown"`
	WinRate          float64            `json:"win_rate"`
	Days             int                `json:"days"`
	PositiveDays     int                `json:"positive_days"`
	StartDate        time.Time          `json:"start_date"`
	EndDate          time.Time          `json:"end_date"`
	Allocations      map[string]float64 `json:"allocations"`
	EquityCurve      []float64          `json:"equity_curve"`
}

// Engine replays allocations over historical daily returns. Symbols without
// usable history are dropped and the remaining weights renormalized, so a
// newly listed asset does not sink the whole simulation.
type Engine struct {
	history domrepo.PriceHistory
	tf      domrepo.Timeframe
}

func NewEngine(history domrepo.PriceHistory) *Engine {
	return &Engine{history: history, tf: domrepo.DefaultTimeframe()}
}

// Run simulates the allocation over the trailing lookback window.
func (e *Engine) Run(ctx context.Context, weights map[string]float64, lookbackDays int) (*Result, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: empty allocation", models.ErrInvalidAllocation)
	}
	sum := 0.0
	for s, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("%w: negative weight %.6f for %s", models.ErrInvalidAllocation, w, s)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return nil, fmt.Errorf("%w: weights sum to %.6f", models.ErrInvalidAllocation, sum)
	}

	symbols := make([]string, 0, len(weights))
	for s := range weights {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	to := time.Now()
	from := to.AddDate(0, 0, -lookbackDays)
	var kept []models.ReturnSeries
	for _, sym := range symbols {
		candles, err := e.history.GetCandles(ctx, sym, from, to, e.tf)
		if err != nil {
			return nil, fmt.Errorf("history %s: %w", sym, err)
		}
		if series := models.ReturnsFromCandles(sym, candles); series.Len() > 0 {
			kept = append(kept, series)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: no symbol has usable history", models.ErrInsufficientData)
	}

	// Renormalize over the symbols that survived.
	keptSum := 0.0
	for _, s := range kept {
		keptSum += weights[s.Symbol]
	}
	if keptSum <= 0 {
		return nil, fmt.Errorf("%w: surviving symbols carry zero weight", models.ErrInvalidAllocation)
	}
	allocations := make(map[string]float64, len(kept))
	for _, s := range kept {
		allocations[s.Symbol] = weights[s.Symbol] / keptSum
	}

	dates, rows := alignDated(kept)
	if len(dates) < minObservations {
		return nil, fmt.Errorf("%w: %d aligned observations", models.ErrInsufficientData, len(dates))
	}

	daily := make([]float64, len(dates))
	for j := range dates {
		for i, s := range kept {
			daily[j] += allocations[s.Symbol] * rows[i][j]
		}
	}

	curve := make([]float64, len(daily))
	equity, peak, maxDD := 1.0, 1.0, 0.0
	positive := 0
	for i, r := range daily {
		equity *= 1 + r
		curve[i] = equity
		if equity > peak {
			peak = equity
		}
		if dd := equity/peak - 1; dd < maxDD {
			maxDD = dd
		}
		if r > 0 {
			positive++
		}
	}

	n := float64(len(daily))
	total := equity - 1
	annualized := math.Pow(1+total, periodsPerYear/n) - 1
	vol := stat.StdDev(daily, nil) * math.Sqrt(periodsPerYear)
	sharpe := 0.0
	if vol > 0 {
		sharpe = annualized / vol
	}

	return &Result{
		TotalReturn:      total,
		AnnualizedReturn: annualized,
		Volatility:       vol,
		SharpeRatio:      sharpe,
		MaxDrawdown:      maxDD,
		WinRate:          float64(positive) / n,
		Days:             len(daily),
		PositiveDays:     positive,
		StartDate:        dates[0],
		EndDate:          dates[len(dates)-1],
		Allocations:      allocations,
		EquityCurve:      curve,
	}, nil
}

// alignDated keeps only dates present in every series, chronologically, and
// returns the per-series return rows in series order.
func alignDated(series []models.ReturnSeries) ([]time.Time, [][]float64) {
	counts := make(map[time.Time]int)
	for _, s := range series {
		for _, p := range s.Points {
			counts[p.Date]++
		}
	}
	var shared []time.Time
	for d, c := range counts {
		if c == len(series) {
			shared = append(shared, d)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i].Before(shared[j]) })

	rows := make([][]float64, len(series))
	for i, s := range series {
		byDate := make(map[time.Time]float64, len(s.Points))
		for _, p := range s.Points {
			byDate[p.Date] = p.Return
		}
		row := make([]float64, len(shared))
		for j, d := range shared {
			row[j] = byDate[d]
		}
		rows[i] = row
	}
	return shared, rows
}
