package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"AnchorFolio/internal/domain/models"
	domrepo "AnchorFolio/internal/domain/repository"
	pkgkafka "AnchorFolio/pkg/kafka"
)

// CandleIngestHandler consumes candle messages from Kafka and writes them to
// storage in batches. Flushes on size or age, whichever comes first.
type CandleIngestHandler struct {
	topic   string
	writer  domrepo.CandleWriter
	metrics domrepo.Metrics

	batchSize int
	maxAge    time.Duration

	mu      sync.Mutex
	pending []models.Candle
	last    time.Time
}

var _ pkgkafka.MessageHandler = (*CandleIngestHandler)(nil)

func NewCandleIngestHandler(topic string, writer domrepo.CandleWriter, metrics domrepo.Metrics, batchSize int, maxAge time.Duration) *CandleIngestHandler {
	if batchSize <= 0 {
		batchSize = 500
	}
	if maxAge <= 0 {
		maxAge = 2 * time.Second
	}
	return &CandleIngestHandler{
		topic:     topic,
		writer:    writer,
		metrics:   metrics,
		batchSize: batchSize,
		maxAge:    maxAge,
		last:      time.Now(),
	}
}

func (h *CandleIngestHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, t, o, h, l, c, v}, t in unix seconds or ms
func (h *CandleIngestHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		O      float64 `json:"o"`
		H      float64 `json:"h"`
		L      float64 `json:"l"`
		C      float64 `json:"c"`
		V      float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("ingest_unmarshal")
		return err
	}
	if m.Symbol == "" || m.T == 0 {
		h.metrics.RecordError("ingest_invalid")
		return fmt.Errorf("invalid candle message: symbol=%q t=%d", m.Symbol, m.T)
	}
	if m.T > 1e11 { // ms
		m.T /= 1000
	}

	candle := models.Candle{
		Bucket: time.Unix(m.T, 0).UTC(),
		Symbol: m.Symbol,
		Open:   m.O,
		High:   m.H,
		Low:    m.L,
		Close:  m.C,
		Volume: m.V,
	}

	h.mu.Lock()
	h.pending = append(h.pending, candle)
	flush := len(h.pending) >= h.batchSize || time.Since(h.last) >= h.maxAge
	var batch []models.Candle
	if flush {
		batch = h.pending
		h.pending = nil
		h.last = time.Now()
	}
	h.mu.Unlock()

	if !flush {
		return nil
	}
	return h.store(ctx, batch)
}

// Flush writes any buffered candles, used on shutdown.
func (h *CandleIngestHandler) Flush(ctx context.Context) error {
	h.mu.Lock()
	batch := h.pending
	h.pending = nil
	h.last = time.Now()
	h.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	return h.store(ctx, batch)
}

func (h *CandleIngestHandler) store(ctx context.Context, batch []models.Candle) error {
	start := time.Now()
	if err := h.writer.StoreBatch(ctx, batch); err != nil {
		h.metrics.RecordError("ingest_store")
		return err
	}
	h.metrics.RecordOperation("candle_ingest", time.Since(start).Seconds())
	return nil
}
