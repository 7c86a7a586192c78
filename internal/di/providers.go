package di

import (
	"context"
	"fmt"
	"time"

	"AnchorFolio/internal/domain/models"
	domrepo "AnchorFolio/internal/domain/repository"
	"AnchorFolio/internal/domain/service"
	"AnchorFolio/internal/handler/api"
	internalrepo "AnchorFolio/internal/repository"
	icache "AnchorFolio/internal/service/cache"
	"AnchorFolio/internal/service/ratelimit"
	"AnchorFolio/internal/services/analytics"
	"AnchorFolio/internal/services/backtest"
	"AnchorFolio/internal/services/enrich"
	"AnchorFolio/internal/services/optimization"
	"AnchorFolio/internal/services/rebalance"
	sigengine "AnchorFolio/internal/services/signals"
	"AnchorFolio/internal/usecase"
	pkgch "AnchorFolio/pkg/clickhouse"
	"AnchorFolio/pkg/config"
	xhttp "AnchorFolio/pkg/http"
	pkgkafka "AnchorFolio/pkg/kafka"
	applogger "AnchorFolio/pkg/logger"
	"AnchorFolio/pkg/metrics"
	"AnchorFolio/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and applies the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.Schema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCandleStore creates the ClickHouse-backed candle repository.
func ProvideCandleStore(chClient *pkgch.Client, l *applogger.Logger) *internalrepo.CandleStore {
	store := internalrepo.NewCandleStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvidePriceHistory exposes the store's read side.
func ProvidePriceHistory(store *internalrepo.CandleStore) domrepo.PriceHistory { return store }

// ProvideCandleWriter exposes the store's write side.
func ProvideCandleWriter(store *internalrepo.CandleStore) domrepo.CandleWriter { return store }

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerLogger(log),
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideSignalPublisher creates the Kafka signal publisher.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.SignalPublisher {
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic)
}

// ProvideCandleIngestHandler registers the handler for the candles topic.
func ProvideCandleIngestHandler(writer domrepo.CandleWriter, metrics domrepo.Metrics, cfg *config.Config) *usecase.CandleIngestHandler {
	return usecase.NewCandleIngestHandler(cfg.Kafka.CandlesTopic, writer, metrics, 500, 2*time.Second)
}

// ProvideAssetCatalog maps the configured symbols to assets with classes.
// Unlisted symbols default to crypto, the anchor to reserve-crypto.
func ProvideAssetCatalog(cfg *config.Config) map[string]models.Asset {
	out := make(map[string]models.Asset, len(cfg.Portfolio.Symbols))
	for _, sym := range cfg.Portfolio.Symbols {
		class := models.ClassCrypto
		if sym == cfg.Portfolio.Anchor {
			class = models.ClassReserveCrypto
		}
		if c, ok := cfg.Portfolio.Assets[sym]; ok && models.IsValidAssetClass(models.AssetClass(c)) {
			class = models.AssetClass(c)
		}
		out[sym] = models.Asset{Symbol: sym, Class: class}
	}
	return out
}

// ProvideCorrelationEngine creates the correlation and diversification engine.
func ProvideCorrelationEngine(history domrepo.PriceHistory, cfg *config.Config, assets map[string]models.Asset) *analytics.CorrelationEngine {
	return analytics.NewCorrelationEngine(history, cfg.Portfolio.Anchor, assets)
}

// ProvideRiskEngine creates the tail-risk engine.
func ProvideRiskEngine(cfg *config.Config) (*analytics.RiskEngine, error) {
	return analytics.NewRiskEngine(analytics.RiskConfig{
		Confidence:        cfg.Risk.Confidence,
		MonteCarloSamples: cfg.Risk.MonteCarloSamples,
		RiskFreeRate:      cfg.Portfolio.RiskFreeRate,
	})
}

// ProvideBiasDetector creates the bias detector with default thresholds.
func ProvideBiasDetector() *analytics.BiasDetector {
	return analytics.NewBiasDetector(analytics.DefaultBiasConfig())
}

// ProvideOptimizer creates the constrained mean-variance optimizer.
func ProvideOptimizer() *optimization.Optimizer {
	return optimization.NewOptimizer()
}

// ProvideSignalEngine creates the technical signal engine with default
// category bands.
func ProvideSignalEngine(history domrepo.PriceHistory) *sigengine.Engine {
	return sigengine.NewEngine(history, nil)
}

// ProvideRebalancer creates the rebalance planner.
func ProvideRebalancer(corr *analytics.CorrelationEngine) *rebalance.Rebalancer {
	return rebalance.NewRebalancer(corr)
}

// ProvideFactorAnalyzer creates the factor regression engine.
func ProvideFactorAnalyzer() *analytics.FactorAnalyzer {
	return analytics.NewFactorAnalyzer()
}

// ProvideBacktestEngine creates the allocation replay engine.
func ProvideBacktestEngine(history domrepo.PriceHistory) *backtest.Engine {
	return backtest.NewEngine(history)
}

// ProvideEnricher creates the external enrichment client, or a passthrough
// when enrichment is disabled.
func ProvideEnricher(cfg *config.Config, l *applogger.Logger) service.SignalEnricher {
	if !cfg.Enrichment.Enabled {
		return enrich.Noop{}
	}
	return enrich.NewClient(enrich.Config{
		BaseURL:      cfg.Enrichment.BaseURL,
		APIKey:       cfg.Enrichment.APIKey,
		Timeout:      cfg.Enrichment.Timeout,
		Retries:      cfg.Enrichment.Retries,
		RateCapacity: cfg.Enrichment.RateCapacity,
		RatePerSec:   cfg.Enrichment.RatePerSec,
	}, ratelimit.New(), l)
}

// ProvideReportCache creates the risk-report cache: Redis when enabled,
// otherwise an in-process TTL cache.
func ProvideReportCache(cfg *config.Config) icache.BytesCache {
	if cfg.Cache.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideAllocationUseCase creates the allocation use case.
func ProvideAllocationUseCase(
	corr *analytics.CorrelationEngine,
	optimizer *optimization.Optimizer,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.AllocationUseCase {
	return usecase.NewAllocationUseCase(corr, optimizer, metrics, l,
		cfg.Portfolio.Symbols, cfg.Portfolio.LookbackDays, cfg.Portfolio.RiskFreeRate)
}

// ProvideRiskReportUseCase creates the risk report use case.
func ProvideRiskReportUseCase(
	corr *analytics.CorrelationEngine,
	risk *analytics.RiskEngine,
	bias *analytics.BiasDetector,
	factors *analytics.FactorAnalyzer,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	reportCache icache.BytesCache,
	cfg *config.Config,
) *usecase.RiskReportUseCase {
	ttl := cfg.Cache.ReportTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return usecase.NewRiskReportUseCase(corr, risk, bias, factors, metrics, l, reportCache, ttl, cfg.Portfolio.LookbackDays)
}

// ProvideSignalsUseCase creates the signal pipeline use case.
func ProvideSignalsUseCase(
	engine *sigengine.Engine,
	bias *analytics.BiasDetector,
	enricher service.SignalEnricher,
	publisher domrepo.SignalPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	batchCache icache.BytesCache,
	cfg *config.Config,
) *usecase.SignalsUseCase {
	return usecase.NewSignalsUseCase(engine, bias, enricher, publisher, metrics, l,
		batchCache, cfg.Cache.SignalsTTL)
}

// ProvideRebalanceUseCase creates the rebalance use case.
func ProvideRebalanceUseCase(
	planner *rebalance.Rebalancer,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.RebalanceUseCase {
	return usecase.NewRebalanceUseCase(planner, metrics, l, cfg.Portfolio.LookbackDays)
}

// ProvideBacktestUseCase creates the backtest use case.
func ProvideBacktestUseCase(
	engine *backtest.Engine,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.BacktestUseCase {
	return usecase.NewBacktestUseCase(engine, metrics, l, cfg.Portfolio.LookbackDays)
}

// ProvideCandlesUseCase creates the candle read use case.
func ProvideCandlesUseCase(history domrepo.PriceHistory) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(history)
}

// ProvideHTTPHandler creates the Echo route handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	alloc *usecase.AllocationUseCase,
	risk *usecase.RiskReportUseCase,
	signals *usecase.SignalsUseCase,
	reb *usecase.RebalanceUseCase,
	bt *usecase.BacktestUseCase,
	candles *usecase.CandlesUseCase,
) xhttp.Handler {
	return api.NewPortfolioEchoHandler(l, alloc, risk, signals, reb, bt, candles)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	consumer *pkgkafka.Consumer,
	ingest *usecase.CandleIngestHandler,
	chClient *pkgch.Client,
	publisher domrepo.SignalPublisher,
	handler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, l, consumer, ingest, chClient, publisher, handler)
}
