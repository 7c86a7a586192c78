package models

import "time"

// BiasKind identifies a behavioral-bias detector.
type BiasKind string

const (
	BiasLossAversion   BiasKind = "loss_aversion"
	BiasOverconfidence BiasKind = "overconfidence"
	BiasPositionSizing BiasKind = "position_sizing"
)

// Severity grades a bias finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// BiasFlag is one tagged finding from a bias detector.
type BiasFlag struct {
	Kind     BiasKind `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Recommendation is the coarse portfolio guidance attached to a risk report.
type Recommendation string

const (
	RecommendHold   Recommendation = "HOLD"
	RecommendReduce Recommendation = "REDUCE"
	RecommendReview Recommendation = "REVIEW"
)

// RiskReport is an immutable per-analysis risk summary.
type RiskReport struct {
	Symbol         string         `json:"symbol,omitempty"`
	GeneratedAt    time.Time      `json:"generated_at"`
	CVaR95         float64        `json:"cvar_95"`
	CVaRParametric float64        `json:"cvar_parametric"`
	CVaRMonteCarlo float64        `json:"cvar_monte_carlo"`
	MaxDrawdown    float64        `json:"max_drawdown"`
	SharpeRatio    float64        `json:"sharpe_ratio"`
	Volatility     float64        `json:"volatility"`
	ExpectedReturn float64        `json:"expected_return"`
	BiasFlags      []BiasFlag     `json:"bias_flags,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
}
