package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"AnchorFolio/internal/domain/models"
	domrepo "AnchorFolio/internal/domain/repository"
	"AnchorFolio/internal/domain/service"
	"AnchorFolio/internal/service/cache"
	"AnchorFolio/internal/services/analytics"
	"AnchorFolio/internal/services/enrich"
	sigengine "AnchorFolio/internal/services/signals"
	applogger "AnchorFolio/pkg/logger"
)

type fakeHistory struct {
	candles map[string][]models.Candle
}

var _ domrepo.PriceHistory = (*fakeHistory)(nil)

func (f *fakeHistory) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	return f.candles[symbol], nil
}

func (f *fakeHistory) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	c := f.candles[symbol]
	if len(c) > n {
		c = c[len(c)-n:]
	}
	return c, nil
}

type fakeMetrics struct {
	mu      sync.Mutex
	ops     map[string]int
	errs    map[string]int
	signals map[string]int
}

var _ domrepo.Metrics = (*fakeMetrics)(nil)

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{ops: map[string]int{}, errs: map[string]int{}, signals: map[string]int{}}
}

func (m *fakeMetrics) RecordOperation(op string, _ float64) {
	m.mu.Lock()
	m.ops[op]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errs[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordSignals(category string, n int) {
	m.mu.Lock()
	m.signals[category] += n
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordSharpe(string, float64) {}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]models.TradingSignal
}

var _ domrepo.SignalPublisher = (*fakePublisher)(nil)

func (p *fakePublisher) Publish(ctx context.Context, s *models.TradingSignal) error {
	p.mu.Lock()
	p.batches = append(p.batches, []models.TradingSignal{*s})
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) PublishBatch(ctx context.Context, signals []models.TradingSignal) error {
	p.mu.Lock()
	p.batches = append(p.batches, signals)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// fakeEnricher scripts the enrichment decision point. Like any conforming
// enricher it never touches entry, take-profit or stop-loss.
type fakeEnricher struct {
	outcome    service.EnrichmentOutcome
	confidence float64
	err        error
	calls      int
}

var _ service.SignalEnricher = (*fakeEnricher)(nil)

func (f *fakeEnricher) Enrich(_ context.Context, s models.TradingSignal) (models.TradingSignal, service.EnrichmentOutcome, error) {
	f.calls++
	if f.outcome == service.OutcomeEnriched {
		out := s
		out.Confidence = f.confidence
		out.Strength = models.StrengthFromConfidence(f.confidence)
		out.Enriched = true
		return out, service.OutcomeEnriched, nil
	}
	return s, f.outcome, f.err
}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// uptrendCandles is a 60-bar quiet daily uptrend, enough history for every
// indicator.
func uptrendCandles(start time.Time) []models.Candle {
	out := make([]models.Candle, 60)
	for i := range out {
		out[i] = models.Candle{Bucket: start.AddDate(0, 0, i), Close: 100 + 0.1*float64(i)}
	}
	return out
}

func newSignalsFixture(t *testing.T, batchCache cache.BytesCache, ttl time.Duration) (*SignalsUseCase, *fakeMetrics, *fakePublisher) {
	t.Helper()
	return newSignalsFixtureWithEnricher(t, enrich.Noop{}, batchCache, ttl)
}

func newSignalsFixtureWithEnricher(t *testing.T, enricher service.SignalEnricher, batchCache cache.BytesCache, ttl time.Duration) (*SignalsUseCase, *fakeMetrics, *fakePublisher) {
	t.Helper()
	start := time.Now().UTC().AddDate(0, 0, -90).Truncate(24 * time.Hour)
	history := &fakeHistory{candles: map[string][]models.Candle{
		"BTC": uptrendCandles(start),
	}}
	metrics := newFakeMetrics()
	publisher := &fakePublisher{}
	uc := NewSignalsUseCase(
		sigengine.NewEngine(history, nil),
		analytics.NewBiasDetector(analytics.DefaultBiasConfig()),
		enricher,
		publisher,
		metrics,
		testLogger(t),
		batchCache,
		ttl,
	)
	return uc, metrics, publisher
}

func TestGenerateBatchValidation(t *testing.T) {
	uc, _, _ := newSignalsFixture(t, nil, 0)
	if _, err := uc.GenerateBatch(context.Background(), GenerateParams{Category: models.CategorySwing}); err == nil {
		t.Fatalf("expected error for empty symbol list")
	}
	p := GenerateParams{Symbols: []string{"BTC"}, Category: "overnight"}
	if _, err := uc.GenerateBatch(context.Background(), p); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestGenerateBatchMixedOutcome(t *testing.T) {
	uc, metrics, publisher := newSignalsFixture(t, nil, 0)
	p := GenerateParams{Symbols: []string{"BTC", "MISSING"}, Category: models.CategorySwing}

	batch, err := uc.GenerateBatch(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Signals) != 1 || batch.Signals[0].Symbol != "BTC" {
		t.Fatalf("expected one BTC signal, got %+v", batch.Signals)
	}
	if !batch.Signals[0].Valid {
		t.Fatalf("derived signal must be valid: %+v", batch.Signals[0])
	}
	if _, ok := batch.Errors["MISSING"]; !ok {
		t.Fatalf("symbol without history must land in Errors, got %v", batch.Errors)
	}
	if len(batch.Rejected) != 0 {
		t.Fatalf("clean signal must not be rejected: %v", batch.Rejected)
	}

	if got := metrics.signals[string(models.CategorySwing)]; got != 1 {
		t.Fatalf("signal count metric: got %d", got)
	}
	if got := metrics.errs["signal_generate"]; got != 1 {
		t.Fatalf("generate error metric: got %d", got)
	}

	if len(publisher.batches) != 1 || len(publisher.batches[0]) != 1 {
		t.Fatalf("expected one published batch of one signal, got %v", publisher.batches)
	}
}

func TestGenerateBatchCached(t *testing.T) {
	uc, metrics, publisher := newSignalsFixture(t, cache.NewTTLCache(), time.Minute)
	p := GenerateParams{Symbols: []string{"BTC"}, Category: models.CategorySwing}

	first, err := uc.GenerateBatch(context.Background(), p)
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	second, err := uc.GenerateBatch(context.Background(), p)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if len(second.Signals) != len(first.Signals) {
		t.Fatalf("cached batch differs: %d vs %d signals", len(second.Signals), len(first.Signals))
	}
	if got := metrics.ops["signal_batch"]; got != 1 {
		t.Fatalf("second call must hit the cache, derived %d times", got)
	}
	if len(publisher.batches) != 1 {
		t.Fatalf("cached batch must not republish, got %d batches", len(publisher.batches))
	}
}

func TestGenerateBatchWithErrorsNotCached(t *testing.T) {
	uc, metrics, _ := newSignalsFixture(t, cache.NewTTLCache(), time.Minute)
	p := GenerateParams{Symbols: []string{"BTC", "MISSING"}, Category: models.CategorySwing}

	if _, err := uc.GenerateBatch(context.Background(), p); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if _, err := uc.GenerateBatch(context.Background(), p); err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if got := metrics.ops["signal_batch"]; got != 2 {
		t.Fatalf("partially failed batches must re-derive, derived %d times", got)
	}
}

func TestGenerateBatchEnrichmentFailureDegrades(t *testing.T) {
	baselineUC, _, _ := newSignalsFixture(t, nil, 0)
	p := GenerateParams{Symbols: []string{"BTC"}, Category: models.CategorySwing}

	baseline, err := baselineUC.GenerateBatch(context.Background(), p)
	if err != nil {
		t.Fatalf("baseline batch: %v", err)
	}
	if len(baseline.Signals) != 1 {
		t.Fatalf("expected one baseline signal, got %d", len(baseline.Signals))
	}
	want := baseline.Signals[0]

	failing := &fakeEnricher{outcome: service.OutcomeFailed, err: models.ErrEnrichmentUnavailable}
	uc, metrics, _ := newSignalsFixtureWithEnricher(t, failing, nil, 0)

	batch, err := uc.GenerateBatch(context.Background(), p)
	if err != nil {
		t.Fatalf("enrichment failure must not fail the batch: %v", err)
	}
	if len(batch.Signals) != 1 {
		t.Fatalf("expected one signal despite enrichment failure, got %+v", batch)
	}
	got := batch.Signals[0]
	if got.Enriched {
		t.Fatalf("degraded signal must not be marked enriched")
	}
	if got.EntryPrice != want.EntryPrice || got.TakeProfit != want.TakeProfit || got.StopLoss != want.StopLoss {
		t.Fatalf("price levels changed on failure: got entry=%v tp=%v sl=%v, want entry=%v tp=%v sl=%v",
			got.EntryPrice, got.TakeProfit, got.StopLoss, want.EntryPrice, want.TakeProfit, want.StopLoss)
	}
	if got.Confidence != want.Confidence {
		t.Fatalf("confidence changed on failure: got %v, want %v", got.Confidence, want.Confidence)
	}
	if !got.Valid {
		t.Fatalf("degraded signal must stay valid: %+v", got)
	}
	if metrics.errs["enrichment"] != 1 {
		t.Fatalf("enrichment error metric: got %d", metrics.errs["enrichment"])
	}
	if failing.calls != 1 {
		t.Fatalf("enricher calls: got %d", failing.calls)
	}
}

func TestGenerateBatchEnrichedRevalidates(t *testing.T) {
	baselineUC, _, _ := newSignalsFixture(t, nil, 0)
	p := GenerateParams{Symbols: []string{"BTC"}, Category: models.CategorySwing}

	baseline, err := baselineUC.GenerateBatch(context.Background(), p)
	if err != nil {
		t.Fatalf("baseline batch: %v", err)
	}
	want := baseline.Signals[0]

	enricher := &fakeEnricher{outcome: service.OutcomeEnriched, confidence: 0.9}
	uc, metrics, _ := newSignalsFixtureWithEnricher(t, enricher, nil, 0)

	batch, err := uc.GenerateBatch(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Signals) != 1 {
		t.Fatalf("expected one enriched signal, got %+v", batch)
	}
	got := batch.Signals[0]
	if !got.Enriched {
		t.Fatalf("signal must be marked enriched")
	}
	if got.Confidence != 0.9 || got.Strength != models.StrengthVeryStrong {
		t.Fatalf("enrichment must adjust confidence and strength: got conf=%v strength=%v", got.Confidence, got.Strength)
	}
	if got.EntryPrice != want.EntryPrice || got.TakeProfit != want.TakeProfit || got.StopLoss != want.StopLoss {
		t.Fatalf("enrichment must never move price levels: got entry=%v tp=%v sl=%v, want entry=%v tp=%v sl=%v",
			got.EntryPrice, got.TakeProfit, got.StopLoss, want.EntryPrice, want.TakeProfit, want.StopLoss)
	}
	if !got.Valid {
		t.Fatalf("re-validated signal must stay valid: %+v", got)
	}
	if metrics.errs["enrichment"] != 0 {
		t.Fatalf("no enrichment error expected, got %d", metrics.errs["enrichment"])
	}
}

func TestGenerateBatchAllFailedPublishesNothing(t *testing.T) {
	uc, _, publisher := newSignalsFixture(t, nil, 0)
	p := GenerateParams{Symbols: []string{"NOPE"}, Category: models.CategorySwing}

	batch, err := uc.GenerateBatch(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Signals) != 0 || len(batch.Errors) != 1 {
		t.Fatalf("expected only errors, got %+v", batch)
	}
	if len(publisher.batches) != 0 {
		t.Fatalf("empty batch must not be published, got %v", publisher.batches)
	}
}
