package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"AnchorFolio/internal/domain/models"
	domrepo "AnchorFolio/internal/domain/repository"
	"AnchorFolio/internal/service/cache"
	"AnchorFolio/internal/services/analytics"
	applogger "AnchorFolio/pkg/logger"
)

// Recommendation thresholds over the report's statistics.
const (
	reduceCVaRThreshold     = -0.05 // daily CVaR worse than -5%
	reduceDrawdownThreshold = -0.10
	reviewSharpeThreshold   = 0.5
)

// RiskReportUseCase assembles per-symbol risk reports from the trailing
// return series.
type RiskReportUseCase struct {
	corr     *analytics.CorrelationEngine
	risk     *analytics.RiskEngine
	bias     *analytics.BiasDetector
	factors  *analytics.FactorAnalyzer
	metrics  domrepo.Metrics
	log      *applogger.Logger
	cache    cache.BytesCache
	cacheTTL time.Duration
	lookback int
}

func NewRiskReportUseCase(
	corr *analytics.CorrelationEngine,
	risk *analytics.RiskEngine,
	bias *analytics.BiasDetector,
	factors *analytics.FactorAnalyzer,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	reportCache cache.BytesCache,
	cacheTTL time.Duration,
	lookbackDays int,
) *RiskReportUseCase {
	return &RiskReportUseCase{
		corr:     corr,
		risk:     risk,
		bias:     bias,
		factors:  factors,
		metrics:  metrics,
		log:      log,
		cache:    reportCache,
		cacheTTL: cacheTTL,
		lookback: lookbackDays,
	}
}

type RiskReportParams struct {
	Symbol       string
	LookbackDays int
	// Weights, when set, adds allocation-level bias findings to the report.
	Weights map[string]float64
}

// BuildReport computes every risk statistic for the symbol concurrently and
// folds them into one report. Insufficient history surfaces as an error,
// never as a zero-filled report.
func (uc *RiskReportUseCase) BuildReport(ctx context.Context, p RiskReportParams) (*models.RiskReport, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	lookback := p.LookbackDays
	if lookback <= 0 {
		lookback = uc.lookback
	}

	cacheKey := fmt.Sprintf("risk:%s:%d", p.Symbol, lookback)
	if uc.cache != nil && p.Weights == nil {
		var cached models.RiskReport
		if ok, _ := cache.GetJSON(uc.cache, cacheKey, &cached); ok {
			return &cached, nil
		}
	}

	start := time.Now()
	series, err := uc.corr.ReturnSeries(ctx, []string{p.Symbol}, lookback)
	if err != nil {
		uc.metrics.RecordError("risk_history")
		return nil, err
	}
	returns := series[0].Values()

	report := &models.RiskReport{Symbol: p.Symbol, GeneratedAt: time.Now()}

	type item struct {
		name string
		val  float64
		err  error
	}
	ch := make(chan item, 7)
	var wg sync.WaitGroup
	run := func(name string, f func([]float64) (float64, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := f(returns)
			ch <- item{name, v, err}
		}()
	}

	run("cvar_historical", uc.risk.HistoricalCVaR)
	run("cvar_parametric", uc.risk.ParametricCVaR)
	run("cvar_monte_carlo", uc.risk.MonteCarloCVaR)
	run("max_drawdown", uc.risk.MaxDrawdown)
	run("sharpe", uc.risk.SharpeRatio)
	run("volatility", uc.risk.AnnualizedVolatility)
	run("expected_return", uc.risk.AnnualizedReturn)

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			uc.metrics.RecordError("risk_" + it.name)
			return nil, fmt.Errorf("%s: %w", it.name, it.err)
		}
		switch it.name {
		case "cvar_historical":
			report.CVaR95 = it.val
		case "cvar_parametric":
			report.CVaRParametric = it.val
		case "cvar_monte_carlo":
			report.CVaRMonteCarlo = it.val
		case "max_drawdown":
			report.MaxDrawdown = it.val
		case "sharpe":
			report.SharpeRatio = it.val
		case "volatility":
			report.Volatility = it.val
		case "expected_return":
			report.ExpectedReturn = it.val
		}
	}

	if p.Weights != nil {
		report.BiasFlags = uc.bias.DetectAllocation(p.Weights, uc.corr.Anchor())
	}
	report.Recommendation = recommend(report)

	uc.metrics.RecordOperation("risk_report", time.Since(start).Seconds())
	uc.log.Debug("risk report built",
		applogger.String("symbol", p.Symbol),
		applogger.Float64("cvar_95", report.CVaR95),
		applogger.String("recommendation", string(report.Recommendation)),
	)

	if uc.cache != nil && p.Weights == nil {
		if err := cache.SetJSON(uc.cache, cacheKey, report, uc.cacheTTL); err != nil {
			uc.log.Warn("risk report cache write failed", applogger.Error(err))
		}
	}
	return report, nil
}

type FactorExposureParams struct {
	Weights      map[string]float64
	Factors      []string
	LookbackDays int
}

// FactorExposure regresses the weighted portfolio's daily returns on the
// factor symbols' returns over the trailing window. Only dates shared by
// every holding and every factor enter the regression.
func (uc *RiskReportUseCase) FactorExposure(ctx context.Context, p FactorExposureParams) (*analytics.FactorModel, error) {
	if len(p.Weights) == 0 {
		return nil, fmt.Errorf("weights required")
	}
	if len(p.Factors) == 0 {
		return nil, fmt.Errorf("factors required")
	}
	if err := models.ValidateWeights(p.Weights); err != nil {
		return nil, err
	}
	lookback := p.LookbackDays
	if lookback <= 0 {
		lookback = uc.lookback
	}

	symbols := make([]string, 0, len(p.Weights))
	for s := range p.Weights {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	start := time.Now()
	all := append(append([]string(nil), symbols...), p.Factors...)
	series, err := uc.corr.ReturnSeries(ctx, all, lookback)
	if err != nil {
		uc.metrics.RecordError("factor_history")
		return nil, err
	}

	rows := models.AlignAll(series)
	n := 0
	if len(rows) > 0 {
		n = len(rows[0])
	}
	portfolio := make([]float64, n)
	for i, sym := range symbols {
		w := p.Weights[sym]
		for j, r := range rows[i] {
			portfolio[j] += w * r
		}
	}

	model, err := uc.factors.Analyze(portfolio, p.Factors, rows[len(symbols):])
	if err != nil {
		uc.metrics.RecordError("factor_exposure")
		return nil, err
	}
	uc.metrics.RecordOperation("factor_exposure", time.Since(start).Seconds())
	uc.log.Debug("factor exposure fitted",
		applogger.Int("observations", model.Observations),
		applogger.Float64("r_squared", model.RSquared),
	)
	return model, nil
}

// recommend maps the report's findings to coarse guidance: REDUCE on tail
// statistics past threshold, REVIEW on poor risk-adjusted performance or any
// high-severity bias finding, otherwise HOLD.
func recommend(r *models.RiskReport) models.Recommendation {
	if r.CVaR95 < reduceCVaRThreshold || r.MaxDrawdown < reduceDrawdownThreshold {
		return models.RecommendReduce
	}
	if r.SharpeRatio < reviewSharpeThreshold || analytics.HasHighSeverity(r.BiasFlags) {
		return models.RecommendReview
	}
	return models.RecommendHold
}
