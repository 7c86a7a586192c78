package usecase

import (
	"context"
	"time"

	"AnchorFolio/internal/domain/models"
	domrepo "AnchorFolio/internal/domain/repository"
	"AnchorFolio/internal/services/rebalance"
	applogger "AnchorFolio/pkg/logger"
)

// RebalanceUseCase wraps the planners with metrics and logging.
type RebalanceUseCase struct {
	planner  *rebalance.Rebalancer
	metrics  domrepo.Metrics
	log      *applogger.Logger
	lookback int
}

func NewRebalanceUseCase(planner *rebalance.Rebalancer, metrics domrepo.Metrics, log *applogger.Logger, lookbackDays int) *RebalanceUseCase {
	return &RebalanceUseCase{planner: planner, metrics: metrics, log: log, lookback: lookbackDays}
}

// PlanAnchor computes the actions moving the anchor weight to target.
func (uc *RebalanceUseCase) PlanAnchor(ctx context.Context, current map[string]float64, target float64) ([]models.RebalanceAction, error) {
	start := time.Now()
	actions, err := uc.planner.PlanToAnchorTarget(current, target)
	if err != nil {
		uc.metrics.RecordError("rebalance_anchor")
		return nil, err
	}
	uc.metrics.RecordOperation("rebalance_anchor", time.Since(start).Seconds())
	uc.log.Info("anchor rebalance planned",
		applogger.Float64("target", target),
		applogger.Int("actions", len(actions)),
	)
	return actions, nil
}

// PlanDiversify computes greedy low-correlation additions within budget.
// A non-positive lookbackDays falls back to the configured default.
func (uc *RebalanceUseCase) PlanDiversify(ctx context.Context, current map[string]float64, pool []string, budget float64, lookbackDays int) ([]models.RebalanceAction, error) {
	start := time.Now()
	if lookbackDays <= 0 {
		lookbackDays = uc.lookback
	}
	actions, err := uc.planner.PlanForDiversification(ctx, current, pool, budget, lookbackDays)
	if err != nil {
		uc.metrics.RecordError("rebalance_diversify")
		return nil, err
	}
	uc.metrics.RecordOperation("rebalance_diversify", time.Since(start).Seconds())
	uc.log.Info("diversification planned",
		applogger.Float64("budget", budget),
		applogger.Int("actions", len(actions)),
	)
	return actions, nil
}
