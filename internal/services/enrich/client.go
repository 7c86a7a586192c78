package enrich

import (
	"context"
	"fmt"
	"time"

	"AnchorFolio/internal/domain/models"
	"AnchorFolio/internal/domain/service"
	"AnchorFolio/internal/service/ratelimit"
	pkghttp "AnchorFolio/pkg/http"
	"AnchorFolio/pkg/logger"
)

// rateKey buckets all enrichment calls under one token bucket.
const rateKey = "enrichment"

// Config holds the enrichment collaborator settings.
type Config struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	Retries      int     // attempts per call, minimum 1
	RateCapacity float64 // bucket size
	RatePerSec   float64 // refill rate
}

// Client calls the external signal-analysis service to adjust a signal's
// confidence and strength. Entry, take-profit and stop-loss are never
// touched. Any failure degrades to the unenriched signal.
type Client struct {
	cfg     Config
	http    *pkghttp.Client
	limiter *ratelimit.Limiter
	log     *logger.Logger
}

var _ service.SignalEnricher = (*Client)(nil)

// NewClient builds the enrichment client.
func NewClient(cfg Config, limiter *ratelimit.Limiter, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    pkghttp.NewClient(pkghttp.WithTimeout(cfg.Timeout)),
		limiter: limiter,
		log:     log,
	}
}

type enrichRequest struct {
	Symbol     string  `json:"symbol"`
	Direction  string  `json:"direction"`
	Category   string  `json:"category"`
	EntryPrice float64 `json:"entry_price"`
	Confidence float64 `json:"confidence"`
	RiskReward float64 `json:"risk_reward_ratio"`
	Trend      string  `json:"trend"`
	RSI        float64 `json:"rsi"`
	Volatility float64 `json:"volatility"`
}

type enrichResponse struct {
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes"`
}

// Enrich submits the signal for external scoring. On rate-limit exhaustion
// the signal passes through untouched; on transport or decode failure the
// original signal is returned with OutcomeFailed and a wrapped
// ErrEnrichmentUnavailable for the caller to log.
func (c *Client) Enrich(ctx context.Context, s models.TradingSignal) (models.TradingSignal, service.EnrichmentOutcome, error) {
	if !c.limiter.Allow(rateKey, c.cfg.RateCapacity, c.cfg.RatePerSec) {
		return s, service.OutcomePassthrough, nil
	}

	req := enrichRequest{
		Symbol:     s.Symbol,
		Direction:  string(s.Direction),
		Category:   string(s.Category),
		EntryPrice: s.EntryPrice,
		Confidence: s.Confidence,
		RiskReward: s.RiskReward,
		Trend:      s.Indicators.Trend,
		RSI:        s.Indicators.RSI,
		Volatility: s.Indicators.Volatility,
	}
	var resp enrichResponse
	if err := c.postWithRetry(ctx, "/v1/signals/score", req, &resp); err != nil {
		return s, service.OutcomeFailed,
			fmt.Errorf("%w: %s: %v", models.ErrEnrichmentUnavailable, s.Symbol, err)
	}
	if resp.Confidence < 0 || resp.Confidence > 1 {
		return s, service.OutcomeFailed,
			fmt.Errorf("%w: %s: confidence %v out of range", models.ErrEnrichmentUnavailable, s.Symbol, resp.Confidence)
	}

	out := s
	out.Confidence = resp.Confidence
	out.Strength = models.StrengthFromConfidence(resp.Confidence)
	out.Enriched = true
	return out, service.OutcomeEnriched, nil
}

// postWithRetry posts JSON with linear backoff between attempts.
func (c *Client) postWithRetry(ctx context.Context, path string, payload, dest interface{}) error {
	attempts := c.cfg.Retries
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
			Method:  pkghttp.MethodPost,
			URL:     c.cfg.BaseURL + path,
			Headers: map[string]string{"X-API-Key": c.cfg.APIKey},
			Body:    payload,
		}, dest)
		if err == nil {
			return nil
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Noop is the enricher used when no collaborator is configured; every signal
// passes through.
type Noop struct{}

var _ service.SignalEnricher = Noop{}

func (Noop) Enrich(_ context.Context, s models.TradingSignal) (models.TradingSignal, service.EnrichmentOutcome, error) {
	return s, service.OutcomePassthrough, nil
}
