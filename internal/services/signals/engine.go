package signals

import (
	"context"
	"fmt"
	"time"

	"AnchorFolio/internal/domain/models"
	domrepo "AnchorFolio/internal/domain/repository"
)

// Volatility multiplier: realized volatility relative to the reference widens
// both the take-profit and stop-loss bands proportionally, so the category's
// minimum risk/reward ratio is preserved.
const (
	volReference     = 0.30
	volFactorCeiling = 2.0
)

// minWindow is the shortest close-price window a signal can be derived from.
const minWindow = 2

// lookbackBars covers the longest indicator period plus smoothing warmup.
const lookbackBars = 60

// Agreement weights per indicator, used for the confidence score.
const (
	weightRSI      = 0.30
	weightMACD     = 0.30
	weightTrend    = 0.25
	weightPricePos = 0.15
)

// RSI thresholds for the direction vote.
const (
	rsiOversold   = 30
	rsiOverbought = 70
)

// Engine derives trading signals from trailing price windows. Pure over its
// inputs; the repository is only read.
type Engine struct {
	history domrepo.PriceHistory
	tf      domrepo.Timeframe
	specs   map[models.TradeCategory]models.CategorySpec
}

// NewEngine builds a signal engine reading candles from history.
func NewEngine(history domrepo.PriceHistory, specs map[models.TradeCategory]models.CategorySpec) *Engine {
	if specs == nil {
		specs = models.DefaultCategorySpecs()
	}
	return &Engine{history: history, tf: domrepo.DefaultTimeframe(), specs: specs}
}

// Generate fetches the trailing window for symbol and derives a signal for
// the category. Signals below the minimum risk/reward are returned marked
// invalid rather than dropped.
func (e *Engine) Generate(ctx context.Context, symbol string, category models.TradeCategory, now time.Time) (*models.TradingSignal, error) {
	spec, ok := e.specs[category]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	candles, err := e.history.GetLatestNCandles(ctx, symbol, lookbackBars, e.tf)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}
	closes := make([]float64, 0, len(candles))
	for _, c := range candles {
		if c.Close > 0 {
			closes = append(closes, c.Close)
		}
	}
	return Derive(symbol, spec, closes, now)
}

// Derive is the pure signal construction over a prepared close window,
// oldest first.
func Derive(symbol string, spec models.CategorySpec, closes []float64, now time.Time) (*models.TradingSignal, error) {
	if len(closes) < minWindow {
		return nil, fmt.Errorf("%w: need at least %d closes for %s, got %d",
			models.ErrInsufficientData, minWindow, symbol, len(closes))
	}
	ind := ComputeIndicators(closes)
	entry := closes[len(closes)-1]
	dir := direction(ind, entry)
	confidence := agreementConfidence(ind, dir)

	factor := volFactor(ind.Volatility)
	tpPct := clampPct(spec.TPMinPct*factor, spec.TPMinPct, spec.TPMaxPct)
	slPct := clampPct(spec.SLMinPct*factor, spec.SLMinPct, spec.SLMaxPct)

	var tp, sl float64
	if dir == models.DirectionBuy {
		tp = entry * (1 + tpPct/100)
		sl = entry * (1 - slPct/100)
	} else {
		tp = entry * (1 - tpPct/100)
		sl = entry * (1 + slPct/100)
	}

	s := &models.TradingSignal{
		Symbol:          symbol,
		Direction:       dir,
		Category:        spec.Category,
		EntryPrice:      entry,
		TakeProfit:      tp,
		StopLoss:        sl,
		TakeProfitPct:   tpPct,
		StopLossPct:     slPct,
		RiskReward:      tpPct / slPct,
		PositionSizePct: positionSize(confidence),
		Confidence:      confidence,
		Strength:        models.StrengthFromConfidence(confidence),
		Indicators:      ind,
		CreatedAt:       now,
		Expiry:          now.Add(spec.HoldingMax),
	}
	s.Revalidate()
	return s, nil
}

// volFactor maps annualized realized volatility to a band multiplier in
// [1, ceiling].
func volFactor(vol float64) float64 {
	f := vol / volReference
	if f < 1 {
		return 1
	}
	if f > volFactorCeiling {
		return volFactorCeiling
	}
	return f
}

func clampPct(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// direction votes across the oscillator, the MACD crossover and the trend
// label. Oversold in an uptrend is the canonical buy; the price's position in
// its trailing range breaks a tie.
func direction(ind models.IndicatorSet, entry float64) models.SignalDirection {
	score := 0.0
	if ind.HasRSI {
		switch {
		case ind.RSI <= rsiOversold:
			score += 2
		case ind.RSI >= rsiOverbought:
			score -= 2
		case ind.RSI < 50:
			score++
		case ind.RSI > 50:
			score--
		}
	}
	if ind.HasMACD {
		if ind.MACD > ind.MACDSignal {
			score++
		} else if ind.MACD < ind.MACDSignal {
			score--
		}
	}
	switch ind.Trend {
	case "up":
		score += 2
	case "down":
		score -= 2
	}
	if score > 0 {
		return models.DirectionBuy
	}
	if score < 0 {
		return models.DirectionSell
	}
	if entry >= ind.SMA20 {
		return models.DirectionSell
	}
	return models.DirectionBuy
}

// agreementConfidence is the weighted fraction of available indicators
// agreeing with the chosen direction.
func agreementConfidence(ind models.IndicatorSet, dir models.SignalDirection) float64 {
	agree, total := 0.0, 0.0
	buy := dir == models.DirectionBuy

	if ind.HasRSI {
		total += weightRSI
		if (buy && ind.RSI < 50) || (!buy && ind.RSI > 50) {
			agree += weightRSI
		}
	}
	if ind.HasMACD {
		total += weightMACD
		if (buy && ind.MACD > ind.MACDSignal) || (!buy && ind.MACD < ind.MACDSignal) {
			agree += weightMACD
		}
	}
	if ind.Trend == "up" || ind.Trend == "down" {
		total += weightTrend
		if (buy && ind.Trend == "up") || (!buy && ind.Trend == "down") {
			agree += weightTrend
		}
	}
	total += weightPricePos
	if buy && ind.PricePosition < 0.5 {
		agree += weightPricePos
	} else if !buy && ind.PricePosition > 0.5 {
		agree += weightPricePos
	}

	if total == 0 {
		return 0
	}
	return agree / total
}

// positionSize scales the risked fraction with confidence inside the
// configured band.
func positionSize(confidence float64) float64 {
	return models.MinPositionSizePct + (models.MaxPositionSizePct-models.MinPositionSizePct)*confidence
}
