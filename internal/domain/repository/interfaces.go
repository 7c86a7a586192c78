package repository

import (
	"context"
	"time"

	"AnchorFolio/internal/domain/models"
)

// PriceHistory provides read-only access to OHLCV candles. Gaps in the range
// yield fewer observations, never an error.
type PriceHistory interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
}

// CandleWriter persists ingested candles. Only the ingest path writes;
// analysis paths read through PriceHistory.
type CandleWriter interface {
	StoreBatch(ctx context.Context, candles []models.Candle) error
	Health(ctx context.Context) error
	Close() error
}

// SignalPublisher pushes validated trading signals to downstream consumers.
type SignalPublisher interface {
	Publish(ctx context.Context, s *models.TradingSignal) error
	PublishBatch(ctx context.Context, signals []models.TradingSignal) error
	Close() error
}

// Metrics records operational measurements.
type Metrics interface {
	RecordOperation(op string, seconds float64)
	RecordError(kind string)
	RecordSignals(category string, n int)
	RecordSharpe(objective string, sharpe float64)
}
