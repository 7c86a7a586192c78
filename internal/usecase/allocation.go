package usecase

import (
	"context"
	"fmt"
	"time"

	"AnchorFolio/internal/domain/models"
	domrepo "AnchorFolio/internal/domain/repository"
	"AnchorFolio/internal/services/analytics"
	"AnchorFolio/internal/services/optimization"
	applogger "AnchorFolio/pkg/logger"
)

// AllocationUseCase runs the full allocation pipeline: historical returns to
// sample statistics to a constrained optimal weight vector.
type AllocationUseCase struct {
	corr      *analytics.CorrelationEngine
	optimizer *optimization.Optimizer
	metrics   domrepo.Metrics
	log       *applogger.Logger
	anchor    string
	symbols   []string
	lookback  int
	riskFree  float64
}

func NewAllocationUseCase(
	corr *analytics.CorrelationEngine,
	optimizer *optimization.Optimizer,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	symbols []string,
	lookbackDays int,
	riskFreeRate float64,
) *AllocationUseCase {
	return &AllocationUseCase{
		corr:      corr,
		optimizer: optimizer,
		metrics:   metrics,
		log:       log,
		anchor:    corr.Anchor(),
		symbols:   symbols,
		lookback:  lookbackDays,
		riskFree:  riskFreeRate,
	}
}

type OptimizeParams struct {
	Objective        optimization.Objective
	Symbols          []string // defaults to the configured universe
	TargetReturn     float64
	TargetVolatility float64
	LookbackDays     int
}

// Optimize solves the allocation and returns it with an anchor-constrained
// portfolio built from the solved weights.
func (uc *AllocationUseCase) Optimize(ctx context.Context, p OptimizeParams) (*optimization.Result, error) {
	start := time.Now()
	symbols := p.Symbols
	if len(symbols) == 0 {
		symbols = uc.symbols
	}
	lookback := p.LookbackDays
	if lookback <= 0 {
		lookback = uc.lookback
	}

	series, err := uc.corr.ReturnSeries(ctx, symbols, lookback)
	if err != nil {
		uc.metrics.RecordError("allocation_history")
		return nil, err
	}
	mu, cov, err := optimization.SampleStatistics(symbols, series)
	if err != nil {
		uc.metrics.RecordError("allocation_statistics")
		return nil, err
	}
	expected := make(map[string]float64, len(symbols))
	for i, s := range symbols {
		expected[s] = mu[i]
	}

	result, err := uc.optimizer.Optimize(optimization.Request{
		Symbols:          symbols,
		Anchor:           uc.anchor,
		ExpectedReturns:  expected,
		Covariance:       cov,
		Objective:        p.Objective,
		TargetReturn:     p.TargetReturn,
		TargetVolatility: p.TargetVolatility,
		RiskFreeRate:     uc.riskFree,
	})
	if err != nil {
		uc.metrics.RecordError("allocation_solve")
		return nil, err
	}

	portfolio := models.NewPortfolio(uc.anchor, result.Weights)
	if err := portfolio.ValidateAnchorConstrained(); err != nil {
		uc.metrics.RecordError("allocation_validate")
		return nil, fmt.Errorf("solved allocation: %w", err)
	}

	uc.metrics.RecordOperation("optimize", time.Since(start).Seconds())
	uc.metrics.RecordSharpe(string(p.Objective), result.Sharpe)
	uc.log.Info("allocation solved",
		applogger.String("objective", string(p.Objective)),
		applogger.Int("symbols", len(symbols)),
		applogger.Float64("sharpe", result.Sharpe),
		applogger.Float64("anchor_weight", result.Weights[uc.anchor]),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return result, nil
}

// DiversificationScore exposes the correlation engine's score for the
// configured or a caller-supplied symbol set.
func (uc *AllocationUseCase) DiversificationScore(ctx context.Context, symbols []string, lookbackDays int) (float64, error) {
	if len(symbols) == 0 {
		symbols = uc.symbols
	}
	if lookbackDays <= 0 {
		lookbackDays = uc.lookback
	}
	return uc.corr.DiversificationScore(ctx, symbols, lookbackDays)
}

// CorrelationMatrix exposes the pairwise matrix for the API layer.
func (uc *AllocationUseCase) CorrelationMatrix(ctx context.Context, symbols []string, lookbackDays int) (*analytics.CorrelationMatrix, error) {
	if len(symbols) == 0 {
		symbols = uc.symbols
	}
	if lookbackDays <= 0 {
		lookbackDays = uc.lookback
	}
	return uc.corr.CorrelationMatrix(ctx, symbols, lookbackDays)
}
