//go:build wireinject
// +build wireinject

package di

import (
	"AnchorFolio/pkg/config"
	"AnchorFolio/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideCandleStore,
		ProvidePriceHistory,
		ProvideCandleWriter,
		ProvideSignalPublisher,

		// Engines
		ProvideAssetCatalog,
		ProvideCorrelationEngine,
		ProvideRiskEngine,
		ProvideBiasDetector,
		ProvideOptimizer,
		ProvideSignalEngine,
		ProvideRebalancer,
		ProvideFactorAnalyzer,
		ProvideBacktestEngine,
		ProvideEnricher,
		ProvideReportCache,

		// Use cases
		ProvideAllocationUseCase,
		ProvideRiskReportUseCase,
		ProvideSignalsUseCase,
		ProvideRebalanceUseCase,
		ProvideBacktestUseCase,
		ProvideCandlesUseCase,
		ProvideCandleIngestHandler,

		// HTTP and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
