//go:build wireinject
// +build wireinject

package di

import (
	"ShrimpCast/pkg/config"
	"ShrimpCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideCache,

		// Repositories
		ProvideEventPublisher,
		ProvideHistoryPipeline,
		ProvideForecastHistory,

		// Models and use cases
		ProvideModels,
		ProvideForecaster,
		ProvideRequestHandler,

		// Transport
		ProvideLimiter,
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
