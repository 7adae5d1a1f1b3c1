package providers

import (
	"log/slog"
	"os"

	"github.com/onkernel/cvd2img/cmd/cvd2img/config"
	"github.com/onkernel/cvd2img/lib/artifacts"
	"github.com/onkernel/cvd2img/lib/disk"
	"github.com/onkernel/cvd2img/lib/layout"
	cvdotel "github.com/onkernel/cvd2img/lib/otel"
	"github.com/onkernel/cvd2img/lib/partition"
	"github.com/onkernel/cvd2img/lib/paths"
	"github.com/onkernel/cvd2img/lib/pipeline"
	"github.com/onkernel/cvd2img/lib/toolrunner"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/onkernel/cvd2img"

// ProvideLogger provides a structured logger at the configured level. When
// telemetry export is enabled, records are also sent to the OTel log pipeline.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	if cfg.OtelEndpoint == "" {
		return slog.New(handler)
	}
	return slog.New(cvdotel.NewTeeHandler(handler, cvdotel.NewLogHandler(instrumentationName, level)))
}

// ProvideMeter provides a meter from the global provider
func ProvideMeter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// ProvideTracer provides a tracer from the global provider
func ProvideTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// ProvidePipelineMetrics provides the pipeline metric instruments
func ProvidePipelineMetrics(meter metric.Meter) (*cvdotel.PipelineMetrics, error) {
	return cvdotel.NewPipelineMetrics(meter)
}

// ProvidePaths provides paths rooted at the canonical component directory
func ProvidePaths(cfg *config.Config) (*paths.Paths, error) {
	dir, err := paths.Canonical(cfg.ComponentDir)
	if err != nil {
		return nil, err
	}
	return paths.New(dir), nil
}

// ProvideToolRunner provides the runner for the component directory's tools
func ProvideToolRunner(p *paths.Paths, logger *slog.Logger, metrics *cvdotel.PipelineMetrics) (toolrunner.Runner, error) {
	return toolrunner.New(p.ComponentDir(), logger, metrics)
}

// ProvideLayouts provides the partition layouts
func ProvideLayouts(cfg *config.Config) (*layout.Layouts, error) {
	return layout.Load(cfg.LayoutFile)
}

// ProvideAssembler provides the disk image assembler
func ProvideAssembler(logger *slog.Logger, metrics *cvdotel.PipelineMetrics) *disk.Assembler {
	return disk.NewAssembler(logger, metrics)
}

// ProvidePartitionOpener provides the GPT backend
func ProvidePartitionOpener() partition.Opener {
	return partition.OpenDiskfs
}

// ProvidePipelineConfig provides the validated build configuration
func ProvidePipelineConfig(cfg *config.Config, layouts *layout.Layouts) (pipeline.Config, error) {
	arch, err := artifacts.ParseArch(cfg.Arch)
	if err != nil {
		return pipeline.Config{}, err
	}

	pc := pipeline.Config{
		SystemImage:          cfg.SystemImage,
		PropertiesImage:      cfg.PropertiesImage,
		VirglPropertiesImage: cfg.VirglPropertiesImage,
		Arch:                 arch,
		Layouts:              layouts,
	}
	if err := pc.Validate(); err != nil {
		return pipeline.Config{}, err
	}
	return pc, nil
}
