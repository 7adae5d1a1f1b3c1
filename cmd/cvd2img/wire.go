//go:build wireinject

package main

import (
	"log/slog"

	"github.com/google/wire"
	"github.com/onkernel/cvd2img/cmd/cvd2img/config"
	"github.com/onkernel/cvd2img/lib/pipeline"
	"github.com/onkernel/cvd2img/lib/providers"
)

// application struct to hold initialized components
type application struct {
	Logger   *slog.Logger
	Config   *config.Config
	Pipeline *pipeline.Pipeline
}

// initializeApp is the injector function
func initializeApp(cfg *config.Config) (*application, func(), error) {
	panic(wire.Build(
		providers.ProvideLogger,
		providers.ProvideMeter,
		providers.ProvideTracer,
		providers.ProvidePipelineMetrics,
		providers.ProvidePaths,
		providers.ProvideToolRunner,
		providers.ProvideLayouts,
		providers.ProvideAssembler,
		providers.ProvidePartitionOpener,
		providers.ProvidePipelineConfig,
		pipeline.New,
		wire.Struct(new(application), "*"),
	))
}
