package models

// Requests for the portfolio HTTP endpoints. Defined in domain for consistency and reuse.

type OptimizeRequest struct {
	Symbols      []string `json:"symbols" validate:"required,min=2,dive,required"`
	Objective    string   `json:"objective" default:"max_sharpe" validate:"oneof=max_sharpe min_volatility target_return target_volatility"`
	TargetReturn float64  `json:"target_return" validate:"gte=0"`
	TargetVol    float64  `json:"target_volatility" validate:"gte=0"`
	LookbackDays int      `json:"lookback_days" default:"90" validate:"gte=7,lte=1825"`
}

type RiskReportRequest struct {
	Symbol       string `query:"symbol" json:"symbol" validate:"required"`
	LookbackDays int    `query:"lookback_days" json:"lookback_days" default:"90" validate:"gte=2,lte=1825"`
}

// SignalsRequest carries no lookback: the indicator engine always evaluates
// its fixed 60-bar window.
type SignalsRequest struct {
	Symbols    []string `query:"symbols" json:"symbols" validate:"required,min=1,dive,required"`
	Category   string   `query:"category" json:"category" default:"swing" validate:"oneof=scalp intraday swing long_term"`
	ActiveOnly bool     `query:"active_only" json:"active_only" default:"true"`
}

type CorrelationRequest struct {
	Symbols      []string `query:"symbols" json:"symbols" validate:"required,min=2,dive,required"`
	LookbackDays int      `query:"lookback_days" json:"lookback_days" default:"90" validate:"gte=7,lte=1825"`
}

type AnchorRebalanceRequest struct {
	Weights      map[string]float64 `json:"weights" validate:"required,min=1"`
	TargetAnchor float64            `json:"target_anchor" default:"0.5" validate:"gte=0,lte=1"`
}

type DiversifyRequest struct {
	Weights      map[string]float64 `json:"weights" validate:"required,min=1"`
	Candidates   []string           `json:"candidates" validate:"required,min=1,dive,required"`
	Budget       float64            `json:"budget" default:"0.2" validate:"gt=0,lte=1"`
	LookbackDays int                `json:"lookback_days" default:"90" validate:"gte=7,lte=1825"`
}

type BacktestRequest struct {
	Weights      map[string]float64 `json:"weights" validate:"required,min=1"`
	LookbackDays int                `json:"lookback_days" default:"365" validate:"gte=30,lte=1825"`
}

type FactorExposureRequest struct {
	Weights      map[string]float64 `json:"weights" validate:"required,min=1"`
	Factors      []string           `json:"factors" validate:"required,min=1,dive,required"`
	LookbackDays int                `json:"lookback_days" default:"365" validate:"gte=30,lte=1825"`
}

// CandlesRequest accepts from/to as RFC3339 or unix seconds; empty means a
// trailing 90-day window ending now.
type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	TF     string `query:"tf" json:"tf" default:"1d"`
	Limit  int    `query:"limit" json:"limit" default:"10000" validate:"gte=0,lte=50000"`
}
