package signals

import (
	"math"

	"AnchorFolio/internal/domain/models"
)

// Indicator periods. Fixed; the Has* flags on the result mark anything the
// window was too short to compute.
const (
	rsiPeriod        = 14
	smaShortPeriod   = 20
	smaLongPeriod    = 50
	emaFastPeriod    = 12
	emaSlowPeriod    = 26
	macdSignalPeriod = 9
	rangePeriod      = 20
	volWindow        = 20
	barsPerYear      = 252
)

// trendTolerance is the relative SMA separation below which the trend label
// is flat rather than up or down.
const trendTolerance = 0.001

// ComputeIndicators evaluates the full indicator schema over a close-price
// window, oldest first. Indicators the window cannot support are left zero
// with their availability flag unset.
func ComputeIndicators(closes []float64) models.IndicatorSet {
	var ind models.IndicatorSet
	n := len(closes)
	if n == 0 {
		return ind
	}

	if n >= rsiPeriod+1 {
		ind.RSI = rsi(closes, rsiPeriod)
		ind.HasRSI = true
	}
	ind.SMA20 = sma(closes, smaShortPeriod)
	if n >= smaLongPeriod {
		ind.SMA50 = sma(closes, smaLongPeriod)
		ind.HasSMA50 = true
	}
	if n >= emaSlowPeriod {
		ind.EMA12 = ema(closes, emaFastPeriod)
		ind.EMA26 = ema(closes, emaSlowPeriod)
	}
	if n >= emaSlowPeriod+macdSignalPeriod {
		ind.MACD, ind.MACDSignal = macd(closes)
		ind.HasMACD = true
	}
	ind.PricePosition = pricePosition(closes, rangePeriod)
	ind.Volatility = realizedVolatility(closes, volWindow)
	ind.Trend = trendLabel(ind)
	return ind
}

// rsi is the momentum oscillator over the trailing period, 0 to 100. Flat
// windows read as neutral 50.
func rsi(closes []float64, period int) float64 {
	start := len(closes) - period - 1
	gains, losses := 0.0, 0.0
	for i := start + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	if gains+losses == 0 {
		return 50
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// sma averages the trailing period, shrinking to the available window.
func sma(closes []float64, period int) float64 {
	if len(closes) < period {
		period = len(closes)
	}
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period)
}

// ema seeds with the SMA of the first period and smooths forward.
func ema(closes []float64, period int) float64 {
	s := emaSeries(closes, period)
	return s[len(s)-1]
}

// emaSeries returns the EMA at each bar from index period-1 onward.
func emaSeries(closes []float64, period int) []float64 {
	seed := 0.0
	for _, c := range closes[:period] {
		seed += c
	}
	seed /= float64(period)
	alpha := 2.0 / (float64(period) + 1)
	out := make([]float64, 0, len(closes)-period+1)
	out = append(out, seed)
	cur := seed
	for _, c := range closes[period:] {
		cur = alpha*c + (1-alpha)*cur
		out = append(out, cur)
	}
	return out
}

// macd returns the trend oscillator (fast EMA minus slow EMA) and its signal
// line (EMA of the oscillator).
func macd(closes []float64) (line, signal float64) {
	fast := emaSeries(closes, emaFastPeriod)
	slow := emaSeries(closes, emaSlowPeriod)
	// Both series end at the latest bar; align tails.
	n := len(slow)
	diff := make([]float64, n)
	for i := 0; i < n; i++ {
		diff[i] = fast[len(fast)-n+i] - slow[i]
	}
	sig := emaSeries(diff, macdSignalPeriod)
	return diff[n-1], sig[len(sig)-1]
}

// pricePosition locates the last close within its trailing extreme range:
// 0 at the low, 1 at the high, 0.5 when the range is degenerate.
func pricePosition(closes []float64, period int) float64 {
	if len(closes) < period {
		period = len(closes)
	}
	window := closes[len(closes)-period:]
	lo, hi := window[0], window[0]
	for _, c := range window {
		lo = math.Min(lo, c)
		hi = math.Max(hi, c)
	}
	if hi == lo {
		return 0.5
	}
	return (closes[len(closes)-1] - lo) / (hi - lo)
}

// realizedVolatility is the annualized standard deviation of trailing
// periodic returns.
func realizedVolatility(closes []float64, window int) float64 {
	if len(closes) < 3 {
		return 0
	}
	if len(closes)-1 < window {
		window = len(closes) - 1
	}
	rets := make([]float64, 0, window)
	for i := len(closes) - window; i < len(closes); i++ {
		if closes[i-1] > 0 {
			rets = append(rets, closes[i]/closes[i-1]-1)
		}
	}
	if len(rets) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	variance := 0.0
	for _, r := range rets {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(rets) - 1)
	return math.Sqrt(variance * barsPerYear)
}

// trendLabel derives the coarse trend from moving-average ordering. Falls
// back to short SMA versus last EMA when the long SMA is unavailable.
func trendLabel(ind models.IndicatorSet) string {
	ref := ind.SMA50
	if !ind.HasSMA50 {
		ref = ind.EMA26
		if ref == 0 {
			return "flat"
		}
	}
	switch {
	case ind.SMA20 > ref*(1+trendTolerance):
		return "up"
	case ind.SMA20 < ref*(1-trendTolerance):
		return "down"
	default:
		return "flat"
	}
}
