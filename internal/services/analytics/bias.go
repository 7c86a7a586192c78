package analytics

import (
	"fmt"

	"AnchorFolio/internal/domain/models"
)

// BiasConfig holds the detector thresholds. Passed explicitly into each call;
// no ambient state.
type BiasConfig struct {
	StaticConfidenceCeiling float64 // ceiling when no trade history is available
	OverconfidenceMargin    float64 // slack added to the empirical win rate
	MinOutcomesForEmpirical int     // history shorter than this falls back to the static ceiling
}

// DefaultBiasConfig returns the standard thresholds.
func DefaultBiasConfig() BiasConfig {
	return BiasConfig{
		StaticConfidenceCeiling: 0.90,
		OverconfidenceMargin:    0.15,
		MinOutcomesForEmpirical: 10,
	}
}

// TradeOutcomes summarizes recent realized results, used to bound declared
// confidence empirically.
type TradeOutcomes struct {
	Wins   int
	Losses int
}

// WinRate returns wins over total, zero for an empty history.
func (t TradeOutcomes) WinRate() float64 {
	n := t.Wins + t.Losses
	if n == 0 {
		return 0
	}
	return float64(t.Wins) / float64(n)
}

// BiasDetector runs stateless heuristic rule evaluators over signals and
// allocations.
type BiasDetector struct {
	cfg BiasConfig
}

// NewBiasDetector builds a detector with the given thresholds.
func NewBiasDetector(cfg BiasConfig) *BiasDetector {
	if cfg.StaticConfidenceCeiling <= 0 {
		cfg = DefaultBiasConfig()
	}
	return &BiasDetector{cfg: cfg}
}

// CheckLossAversion flags a stop-loss materially tighter than the category's
// band allows relative to the take-profit distance (asymmetric downside
// protection).
func (d *BiasDetector) CheckLossAversion(s models.TradingSignal, spec models.CategorySpec) []models.BiasFlag {
	var flags []models.BiasFlag
	if s.StopLossPct <= 0 {
		flags = append(flags, models.BiasFlag{
			Kind:     models.BiasLossAversion,
			Severity: models.SeverityHigh,
			Message:  fmt.Sprintf("%s: stop-loss distance is zero", s.Symbol),
		})
		return flags
	}
	if s.StopLossPct < spec.SLMinPct {
		flags = append(flags, models.BiasFlag{
			Kind:     models.BiasLossAversion,
			Severity: models.SeverityHigh,
			Message: fmt.Sprintf("%s: stop-loss %.2f%% below category floor %.2f%%",
				s.Symbol, s.StopLossPct, spec.SLMinPct),
		})
	}
	// Widest ratio the band permits; exceeding it means the stop is tight
	// relative to the target in a way the category does not support.
	maxRatio := spec.TPMaxPct / spec.SLMinPct
	if ratio := s.TakeProfitPct / s.StopLossPct; ratio > maxRatio {
		sev := models.SeverityMedium
		if ratio > 1.5*maxRatio {
			sev = models.SeverityHigh
		}
		flags = append(flags, models.BiasFlag{
			Kind:     models.BiasLossAversion,
			Severity: sev,
			Message: fmt.Sprintf("%s: TP/SL ratio %.2f exceeds category maximum %.2f",
				s.Symbol, ratio, maxRatio),
		})
	}
	return flags
}

// CheckOverconfidence flags declared confidence above the empirical ceiling
// implied by recent outcomes, or above the static ceiling when no usable
// history exists. Severity is high when the indicators themselves do not
// support the declared confidence.
func (d *BiasDetector) CheckOverconfidence(s models.TradingSignal, history *TradeOutcomes) []models.BiasFlag {
	ceiling := d.cfg.StaticConfidenceCeiling
	if history != nil && history.Wins+history.Losses >= d.cfg.MinOutcomesForEmpirical {
		if empirical := history.WinRate() + d.cfg.OverconfidenceMargin; empirical < ceiling {
			ceiling = empirical
		}
	}
	if s.Confidence <= ceiling {
		return nil
	}
	sev := models.SeverityMedium
	if indicatorAgreement(s.Indicators, s.Direction) < 0.5 {
		sev = models.SeverityHigh
	}
	return []models.BiasFlag{{
		Kind:     models.BiasOverconfidence,
		Severity: sev,
		Message: fmt.Sprintf("%s: declared confidence %.2f exceeds ceiling %.2f",
			s.Symbol, s.Confidence, ceiling),
	}}
}

// CheckPositionSizing flags position sizes above the configured cap
// regardless of confidence.
func (d *BiasDetector) CheckPositionSizing(s models.TradingSignal) []models.BiasFlag {
	if s.PositionSizePct <= models.MaxPositionSizePct {
		return nil
	}
	return []models.BiasFlag{{
		Kind:     models.BiasPositionSizing,
		Severity: models.SeverityHigh,
		Message: fmt.Sprintf("%s: position size %.2f%% exceeds cap %.2f%%",
			s.Symbol, s.PositionSizePct*100, models.MaxPositionSizePct*100),
	}}
}

// DetectAll aggregates every signal-level detector.
func (d *BiasDetector) DetectAll(s models.TradingSignal, spec models.CategorySpec, history *TradeOutcomes) []models.BiasFlag {
	var flags []models.BiasFlag
	flags = append(flags, d.CheckLossAversion(s, spec)...)
	flags = append(flags, d.CheckOverconfidence(s, history)...)
	flags = append(flags, d.CheckPositionSizing(s)...)
	return flags
}

// DetectAllocation flags non-anchor holdings above the per-asset cap.
func (d *BiasDetector) DetectAllocation(weights map[string]float64, anchor string) []models.BiasFlag {
	var flags []models.BiasFlag
	for sym, w := range weights {
		if sym == anchor {
			continue
		}
		if w > models.MaxPerAssetWeight+models.WeightEpsilon {
			flags = append(flags, models.BiasFlag{
				Kind:     models.BiasPositionSizing,
				Severity: models.SeverityHigh,
				Message: fmt.Sprintf("%s: allocation %.2f%% exceeds per-asset cap %.2f%%",
					sym, w*100, models.MaxPerAssetWeight*100),
			})
		}
	}
	return flags
}

// HasHighSeverity reports whether any finding would reject a signal.
func HasHighSeverity(flags []models.BiasFlag) bool {
	for _, f := range flags {
		if f.Severity == models.SeverityHigh {
			return true
		}
	}
	return false
}

// indicatorAgreement is the fraction of computed indicators pointing in the
// signal's direction.
func indicatorAgreement(ind models.IndicatorSet, dir models.SignalDirection) float64 {
	agree, total := 0, 0
	if ind.HasRSI {
		total++
		if (dir == models.DirectionBuy && ind.RSI < 50) || (dir == models.DirectionSell && ind.RSI > 50) {
			agree++
		}
	}
	if ind.HasMACD {
		total++
		if (dir == models.DirectionBuy && ind.MACD > ind.MACDSignal) || (dir == models.DirectionSell && ind.MACD < ind.MACDSignal) {
			agree++
		}
	}
	if ind.Trend != "" && ind.Trend != "flat" {
		total++
		if (dir == models.DirectionBuy && ind.Trend == "up") || (dir == models.DirectionSell && ind.Trend == "down") {
			agree++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(agree) / float64(total)
}
