package service

import (
	"context"

	"AnchorFolio/internal/domain/models"
)

// EnrichmentOutcome is the typed result of the single try-enrich-else-passthrough
// decision point in the signal pipeline.
type EnrichmentOutcome string

const (
	OutcomeEnriched    EnrichmentOutcome = "enriched"
	OutcomePassthrough EnrichmentOutcome = "passthrough"
	OutcomeFailed      EnrichmentOutcome = "failed"
)

// SignalEnricher adjusts a signal's confidence and strength using an external
// analysis collaborator. Implementations must never modify entry, take-profit
// or stop-loss levels and must be safe to skip entirely.
type SignalEnricher interface {
	Enrich(ctx context.Context, s models.TradingSignal) (models.TradingSignal, EnrichmentOutcome, error)
}
