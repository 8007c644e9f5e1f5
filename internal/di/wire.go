//go:build wireinject
// +build wireinject

package di

import (
	"StockDash/internal/usecase"
	"StockDash/pkg/config"
	"StockDash/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideCache,
	ProvideClickHouseClient,
	ProvideBarArchive,
)

var seriesSet = wire.NewSet(
	ProvideBarProvider,
	ProvideFitter,
	ProvideSeriesUseCase,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		infraSet,
		seriesSet,

		// Events
		ProvideKafkaProducer,
		ProvideEventPublisher,

		// Use cases
		ProvideSecuritySource,
		ProvideSecuritiesUseCase,
		ProvideChartUseCase,

		// Transport
		ProvideRateLimiter,
		ProvideDashboardHandler,
		ProvideSessionHandler,
		ProvideHTTPServer,
		ProvideScheduler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeSeries wires the series pipeline alone, for command-line use.
func InitializeSeries(cfg *config.Config) (*usecase.SeriesUseCase, error) {
	wire.Build(infraSet, seriesSet)
	return &usecase.SeriesUseCase{}, nil
}
