//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"snapfeed/internal"
	"snapfeed/internal/controllers"
	"snapfeed/internal/feed"
	"snapfeed/internal/hive"
	"snapfeed/internal/providers"
	"snapfeed/internal/registry"
	"snapfeed/internal/services"
	"snapfeed/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		hive.NewClient,
		wire.Bind(new(feed.Gateway), new(*hive.Client)),
		wire.Bind(new(registry.FollowingSource), new(*hive.Client)),
		registry.NewFollowingRegistry,
		registry.NewMuteRegistry,
		services.NewFeedService,
		services.NewScheduler,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
