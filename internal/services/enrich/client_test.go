package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"AnchorFolio/internal/domain/models"
	"AnchorFolio/internal/domain/service"
	"AnchorFolio/internal/service/ratelimit"
	applogger "AnchorFolio/pkg/logger"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testSignal() models.TradingSignal {
	return models.TradingSignal{
		Symbol:     "BTC",
		Direction:  models.DirectionBuy,
		Category:   models.CategorySwing,
		EntryPrice: 100,
		TakeProfit: 108,
		StopLoss:   96,
		RiskReward: 2,
		Confidence: 0.6,
		Strength:   models.StrengthModerate,
	}
}

func newTestClient(t *testing.T, baseURL string, retries int, capacity float64) *Client {
	t.Helper()
	return NewClient(Config{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		Timeout:      2 * time.Second,
		Retries:      retries,
		RateCapacity: capacity,
		RatePerSec:   capacity,
	}, ratelimit.New(), testLogger(t))
}

func TestEnrichSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/signals/score" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("api key header: got %q", got)
		}
		var req struct {
			Symbol string `json:"symbol"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbol != "BTC" {
			t.Errorf("request body: symbol=%q err=%v", req.Symbol, err)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"confidence": 0.9, "notes": "ok"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1, 10)
	in := testSignal()
	out, outcome, err := c.Enrich(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != service.OutcomeEnriched {
		t.Fatalf("outcome: got %q", outcome)
	}
	if !out.Enriched || out.Confidence != 0.9 || out.Strength != models.StrengthVeryStrong {
		t.Fatalf("enriched fields wrong: %+v", out)
	}
	if out.EntryPrice != in.EntryPrice || out.TakeProfit != in.TakeProfit || out.StopLoss != in.StopLoss {
		t.Fatalf("price levels must not move: %+v", out)
	}
}

func TestEnrichServerErrorFailsAfterRetries(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2, 10)
	in := testSignal()
	out, outcome, err := c.Enrich(context.Background(), in)
	if outcome != service.OutcomeFailed {
		t.Fatalf("outcome: got %q", outcome)
	}
	if !errors.Is(err, models.ErrEnrichmentUnavailable) {
		t.Fatalf("error must wrap ErrEnrichmentUnavailable, got %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
	if out.Enriched || out.Confidence != in.Confidence {
		t.Fatalf("failed enrichment must return the signal untouched: %+v", out)
	}
}

func TestEnrichRetryRecovers(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]float64{"confidence": 0.75})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3, 10)
	out, outcome, err := c.Enrich(context.Background(), testSignal())
	if err != nil || outcome != service.OutcomeEnriched {
		t.Fatalf("expected recovery on retry: outcome=%q err=%v", outcome, err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
	if out.Confidence != 0.75 || out.Strength != models.StrengthStrong {
		t.Fatalf("enriched fields wrong: %+v", out)
	}
}

func TestEnrichConfidenceOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]float64{"confidence": 1.5})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1, 10)
	in := testSignal()
	out, outcome, err := c.Enrich(context.Background(), in)
	if outcome != service.OutcomeFailed {
		t.Fatalf("out-of-range confidence must fail: got %q", outcome)
	}
	if !errors.Is(err, models.ErrEnrichmentUnavailable) {
		t.Fatalf("error must wrap ErrEnrichmentUnavailable, got %v", err)
	}
	if out.Confidence != in.Confidence || out.Enriched {
		t.Fatalf("signal must be untouched: %+v", out)
	}
}

func TestEnrichRateLimitedPassesThrough(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1, 0)
	in := testSignal()
	out, outcome, err := c.Enrich(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != service.OutcomePassthrough {
		t.Fatalf("exhausted limiter must pass through: got %q", outcome)
	}
	if got := hits.Load(); got != 0 {
		t.Fatalf("no request expected when rate limited, got %d", got)
	}
	if out.Enriched || out.Confidence != in.Confidence || out.Strength != in.Strength {
		t.Fatalf("passthrough must return the signal unchanged: %+v", out)
	}
}
