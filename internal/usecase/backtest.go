package usecase

import (
	"context"
	"time"

	domrepo "AnchorFolio/internal/domain/repository"
	"AnchorFolio/internal/services/backtest"
	applogger "AnchorFolio/pkg/logger"
)

// BacktestUseCase wraps the simulation engine with metrics and logging.
type BacktestUseCase struct {
	engine   *backtest.Engine
	metrics  domrepo.Metrics
	log      *applogger.Logger
	lookback int
}

func NewBacktestUseCase(engine *backtest.Engine, metrics domrepo.Metrics, log *applogger.Logger, lookbackDays int) *BacktestUseCase {
	return &BacktestUseCase{engine: engine, metrics: metrics, log: log, lookback: lookbackDays}
}

// Run replays the allocation over the trailing window. A non-positive
// lookbackDays falls back to the configured default.
func (uc *BacktestUseCase) Run(ctx context.Context, weights map[string]float64, lookbackDays int) (*backtest.Result, error) {
	if lookbackDays <= 0 {
		lookbackDays = uc.lookback
	}
	start := time.Now()
	res, err := uc.engine.Run(ctx, weights, lookbackDays)
	if err != nil {
		uc.metrics.RecordError("backtest")
		return nil, err
	}
	uc.metrics.RecordOperation("backtest", time.Since(start).Seconds())
	uc.log.Info("backtest complete",
		applogger.Int("symbols", len(res.Allocations)),
		applogger.Int("days", res.Days),
		applogger.Float64("total_return", res.TotalReturn),
		applogger.Float64("max_drawdown", res.MaxDrawdown),
	)
	return res, nil
}
