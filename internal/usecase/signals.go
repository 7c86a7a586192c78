package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"AnchorFolio/internal/domain/models"
	domrepo "AnchorFolio/internal/domain/repository"
	"AnchorFolio/internal/domain/service"
	"AnchorFolio/internal/service/cache"
	"AnchorFolio/internal/services/analytics"
	sigengine "AnchorFolio/internal/services/signals"
	applogger "AnchorFolio/pkg/logger"
)

// batchTimeout bounds one full signal-pipeline run.
const batchTimeout = 10 * time.Second

// SignalsUseCase runs the signal pipeline: derive per symbol, screen with the
// bias detectors, enrich where possible, publish the survivors.
type SignalsUseCase struct {
	engine    *sigengine.Engine
	bias      *analytics.BiasDetector
	enricher  service.SignalEnricher
	publisher domrepo.SignalPublisher
	metrics   domrepo.Metrics
	log       *applogger.Logger
	cache     cache.BytesCache
	cacheTTL  time.Duration
	specs     map[models.TradeCategory]models.CategorySpec
}

func NewSignalsUseCase(
	engine *sigengine.Engine,
	bias *analytics.BiasDetector,
	enricher service.SignalEnricher,
	publisher domrepo.SignalPublisher,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	batchCache cache.BytesCache,
	cacheTTL time.Duration,
) *SignalsUseCase {
	return &SignalsUseCase{
		engine:    engine,
		bias:      bias,
		enricher:  enricher,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		cache:     batchCache,
		cacheTTL:  cacheTTL,
		specs:     models.DefaultCategorySpecs(),
	}
}

func batchCacheKey(p GenerateParams) string {
	syms := append([]string(nil), p.Symbols...)
	sort.Strings(syms)
	return fmt.Sprintf("signals:%s:%s", p.Category, strings.Join(syms, ","))
}

type GenerateParams struct {
	Symbols  []string
	Category models.TradeCategory
}

// GenerateBatch derives one signal per symbol concurrently. Per-symbol
// failures land in the batch's Errors map; signals carrying a high-severity
// bias finding land in Rejected. Valid signals are published downstream.
func (uc *SignalsUseCase) GenerateBatch(ctx context.Context, p GenerateParams) (*models.SignalBatch, error) {
	if len(p.Symbols) == 0 {
		return nil, fmt.Errorf("symbols required")
	}
	if !models.IsValidCategory(p.Category) {
		return nil, fmt.Errorf("unknown category %q", p.Category)
	}
	spec := uc.specs[p.Category]

	cacheKey := batchCacheKey(p)
	if uc.cache != nil && uc.cacheTTL > 0 {
		var cached models.SignalBatch
		if ok, _ := cache.GetJSON(uc.cache, cacheKey, &cached); ok {
			return &cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	now := time.Now()
	start := now
	batch := &models.SignalBatch{
		Category:  p.Category,
		Timestamp: now,
		Errors:    map[string]string{},
	}

	type item struct {
		symbol string
		sig    *models.TradingSignal
		err    error
	}
	ch := make(chan item, len(p.Symbols))
	var wg sync.WaitGroup

	for _, sym := range p.Symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			sig, err := uc.engine.Generate(ctx, sym, p.Category, now)
			ch <- item{sym, sig, err}
		}(sym)
	}
	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			uc.metrics.RecordError("signal_generate")
			batch.Errors[it.symbol] = it.err.Error()
			continue
		}
		sig := uc.screenAndEnrich(ctx, *it.sig, spec)
		if analytics.HasHighSeverity(sig.BiasFlags) {
			batch.Rejected = append(batch.Rejected, sig)
			continue
		}
		batch.Signals = append(batch.Signals, sig)
	}

	if len(batch.Errors) == 0 {
		batch.Errors = nil
	}
	uc.metrics.RecordSignals(string(p.Category), len(batch.Signals))
	uc.metrics.RecordOperation("signal_batch", time.Since(start).Seconds())

	if uc.publisher != nil && len(batch.Signals) > 0 {
		if err := uc.publisher.PublishBatch(ctx, batch.Signals); err != nil {
			uc.metrics.RecordError("signal_publish")
			uc.log.Error("signal publish failed",
				applogger.String("category", string(p.Category)),
				applogger.Int("signals", len(batch.Signals)),
				applogger.Error(err),
			)
		}
	}

	// Batches with per-symbol failures stay uncached so retries re-derive.
	if uc.cache != nil && uc.cacheTTL > 0 && batch.Errors == nil {
		if err := cache.SetJSON(uc.cache, cacheKey, batch, uc.cacheTTL); err != nil {
			uc.log.Warn("signal batch cache write failed", applogger.Error(err))
		}
	}
	return batch, nil
}

// screenAndEnrich attaches bias findings and runs the single
// try-enrich-else-passthrough decision point. Enrichment failure downgrades
// to the unenriched signal with a warning; it is never a pipeline failure.
func (uc *SignalsUseCase) screenAndEnrich(ctx context.Context, sig models.TradingSignal, spec models.CategorySpec) models.TradingSignal {
	sig.BiasFlags = uc.bias.DetectAll(sig, spec, nil)
	if analytics.HasHighSeverity(sig.BiasFlags) {
		return sig
	}

	enriched, outcome, err := uc.enricher.Enrich(ctx, sig)
	switch outcome {
	case service.OutcomeEnriched:
		enriched.Revalidate()
		return enriched
	case service.OutcomeFailed:
		uc.metrics.RecordError("enrichment")
		uc.log.Warn("enrichment unavailable, using raw signal",
			applogger.String("symbol", sig.Symbol),
			applogger.Error(err),
		)
	}
	return sig
}
