package models

import "time"

// TradeCategory classifies a signal by holding period.
type TradeCategory string

const (
	CategoryScalp    TradeCategory = "scalp"
	CategoryIntraday TradeCategory = "intraday"
	CategorySwing    TradeCategory = "swing"
	CategoryLongTerm TradeCategory = "long_term"
)

// IsValidCategory returns true if c is a supported trade category.
func IsValidCategory(c TradeCategory) bool {
	switch c {
	case CategoryScalp, CategoryIntraday, CategorySwing, CategoryLongTerm:
		return true
	default:
		return false
	}
}

// CategorySpec is the immutable per-category configuration: holding-period
// range and TP/SL percentage bands. Percentages are absolute (2.0 == 2%).
type CategorySpec struct {
	Category   TradeCategory
	HoldingMin time.Duration
	HoldingMax time.Duration
	TPMinPct   float64
	TPMaxPct   float64
	SLMinPct   float64
	SLMaxPct   float64
}

// DefaultCategorySpecs returns the standard category bands.
func DefaultCategorySpecs() map[TradeCategory]CategorySpec {
	return map[TradeCategory]CategorySpec{
		CategoryScalp: {
			Category:   CategoryScalp,
			HoldingMin: 30 * time.Second,
			HoldingMax: 15 * time.Minute,
			TPMinPct:   0.1, TPMaxPct: 0.5,
			SLMinPct: 0.05, SLMaxPct: 0.2,
		},
		CategoryIntraday: {
			Category:   CategoryIntraday,
			HoldingMin: 15 * time.Minute,
			HoldingMax: 24 * time.Hour,
			TPMinPct:   0.5, TPMaxPct: 2.0,
			SLMinPct: 0.2, SLMaxPct: 1.0,
		},
		CategorySwing: {
			Category:   CategorySwing,
			HoldingMin: 24 * time.Hour,
			HoldingMax: 4 * 7 * 24 * time.Hour,
			TPMinPct:   2.0, TPMaxPct: 10.0,
			SLMinPct: 1.0, SLMaxPct: 5.0,
		},
		CategoryLongTerm: {
			Category:   CategoryLongTerm,
			HoldingMin: 4 * 7 * 24 * time.Hour,
			HoldingMax: 365 * 24 * time.Hour,
			TPMinPct:   10.0, TPMaxPct: 50.0,
			SLMinPct: 5.0, SLMaxPct: 15.0,
		},
	}
}

// SignalDirection is the trade side of a signal.
type SignalDirection string

const (
	DirectionBuy  SignalDirection = "buy"
	DirectionSell SignalDirection = "sell"
)

// SignalStrength buckets confidence into coarse labels.
type SignalStrength string

const (
	StrengthWeak       SignalStrength = "weak"
	StrengthModerate   SignalStrength = "moderate"
	StrengthStrong     SignalStrength = "strong"
	StrengthVeryStrong SignalStrength = "very_strong"
)

// StrengthFromConfidence buckets a confidence value via fixed thresholds.
func StrengthFromConfidence(confidence float64) SignalStrength {
	switch {
	case confidence >= 0.85:
		return StrengthVeryStrong
	case confidence >= 0.7:
		return StrengthStrong
	case confidence >= 0.5:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// MinRiskReward is the floor below which a signal is marked invalid.
const MinRiskReward = 1.5

// Position-size band: fraction of capital risked per signal.
const (
	MinPositionSizePct = 0.01
	MaxPositionSizePct = 0.02
)

// IndicatorSet is the fixed numeric schema of computed technical indicators.
// Validated at the data boundary so numeric code never faces missing fields;
// Has* flags mark indicators the window was too short to compute.
type IndicatorSet struct {
	RSI           float64 `json:"rsi"`
	HasRSI        bool    `json:"has_rsi"`
	SMA20         float64 `json:"sma_20"`
	SMA50         float64 `json:"sma_50"`
	HasSMA50      bool    `json:"has_sma_50"`
	EMA12         float64 `json:"ema_12"`
	EMA26         float64 `json:"ema_26"`
	MACD          float64 `json:"macd"`
	MACDSignal    float64 `json:"macd_signal"`
	HasMACD       bool    `json:"has_macd"`
	PricePosition float64 `json:"price_position"` // 0 at trailing low, 1 at trailing high
	Volatility    float64 `json:"volatility"`     // annualized realized volatility
	Trend         string  `json:"trend"`          // "up", "down", "flat"
}

// TradingSignal is a discrete entry/target/stop recommendation. Created by
// the signal engine; enrichment may adjust Confidence and Strength only.
type TradingSignal struct {
	Symbol          string          `json:"symbol"`
	Direction       SignalDirection `json:"direction"`
	Category        TradeCategory   `json:"category"`
	EntryPrice      float64         `json:"entry_price"`
	TakeProfit      float64         `json:"take_profit"`
	StopLoss        float64         `json:"stop_loss"`
	TakeProfitPct   float64         `json:"take_profit_pct"`
	StopLossPct     float64         `json:"stop_loss_pct"`
	RiskReward      float64         `json:"risk_reward_ratio"`
	PositionSizePct float64         `json:"position_size_pct"`
	Confidence      float64         `json:"confidence"`
	Strength        SignalStrength  `json:"strength"`
	Indicators      IndicatorSet    `json:"indicators"`
	BiasFlags       []BiasFlag      `json:"bias_flags,omitempty"`
	Enriched        bool            `json:"enriched"`
	Valid           bool            `json:"is_valid"`
	CreatedAt       time.Time       `json:"created_at"`
	Expiry          time.Time       `json:"expiry"`
}

// Expired reports whether the signal is past its expiry at the given time.
func (s *TradingSignal) Expired(now time.Time) bool {
	return !s.Expiry.IsZero() && now.After(s.Expiry)
}

// Revalidate recomputes the Valid flag from risk/reward and position size.
func (s *TradingSignal) Revalidate() {
	s.Valid = s.RiskReward >= MinRiskReward &&
		s.PositionSizePct >= MinPositionSizePct-1e-9 &&
		s.PositionSizePct <= MaxPositionSizePct+1e-9
}
