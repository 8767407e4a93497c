//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	dservice "FinCollect/internal/domain/service"
	"FinCollect/internal/service/calendar"
	"FinCollect/pkg/config"
	"FinCollect/pkg/server"
)

var coreSet = wire.NewSet(
	// Ambient
	ProvideLogger,
	ProvideMetrics,
	ProvideClock,

	// Calendar
	ProvideCalendar,
	wire.Bind(new(dservice.MarketCalendar), new(*calendar.Calendar)),

	// Infrastructure clients and repositories
	ProvideRedisClient,
	ProvideLedgerBackend,
	ProvideExportSink,

	// Use cases
	ProvideLedgerStore,
	ProvideExporter,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		coreSet,
		ProvideFetcher,
		ProvideHub,
		ProvideScheduler,
		ProvideHandlers,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeExportTool wires the offline export path.
func InitializeExportTool(cfg *config.Config) (*ExportTool, func(), error) {
	wire.Build(
		coreSet,
		ProvideExportTool,
	)
	return nil, nil, nil
}
