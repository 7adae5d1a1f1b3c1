// Package pipeline runs the full image build: sparse normalization, the
// system image, the generated artifacts and both properties images.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/onkernel/cvd2img/lib/artifacts"
	"github.com/onkernel/cvd2img/lib/disk"
	"github.com/onkernel/cvd2img/lib/layout"
	cvdotel "github.com/onkernel/cvd2img/lib/otel"
	"github.com/onkernel/cvd2img/lib/partition"
	"github.com/onkernel/cvd2img/lib/paths"
	"github.com/onkernel/cvd2img/lib/sparse"
	"github.com/onkernel/cvd2img/lib/toolrunner"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config describes one build.
type Config struct {
	SystemImage          string
	PropertiesImage      string
	VirglPropertiesImage string
	Arch                 artifacts.Arch
	Layouts              *layout.Layouts
}

// Pipeline builds the system and properties images from a component
// directory. Stages run strictly in order and the first failure stops the
// build.
type Pipeline struct {
	cfg        Config
	paths      *paths.Paths
	runner     toolrunner.Runner
	normalizer *sparse.Normalizer
	assembler  *disk.Assembler
	open       partition.Opener
	logger     *slog.Logger
	metrics    *cvdotel.PipelineMetrics
	tracer     trace.Tracer
}

// New creates a new Pipeline. A nil tracer disables tracing and nil metrics
// record nothing.
func New(
	cfg Config,
	p *paths.Paths,
	runner toolrunner.Runner,
	assembler *disk.Assembler,
	open partition.Opener,
	logger *slog.Logger,
	metrics *cvdotel.PipelineMetrics,
	tracer trace.Tracer,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("cvd2img")
	}
	return &Pipeline{
		cfg:        cfg,
		paths:      p,
		runner:     runner,
		normalizer: sparse.NewNormalizer(p, runner, logger),
		assembler:  assembler,
		open:       open,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
	}
}

// Run executes the build. Every error is a *StageError.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	ctx, span := p.tracer.Start(ctx, "cvd2img.run", trace.WithAttributes(
		attribute.String("arch", p.cfg.Arch.String()),
		attribute.String("component_dir", p.paths.ComponentDir()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	p.logger.InfoContext(ctx, "transforming sparse images if needed")
	if err := p.stage(ctx, StageTransformSparse, "", p.normalizer.NormalizeAll); err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "creating disk image", "image", p.cfg.SystemImage)
	if err := p.buildImage(ctx, p.paths.ComponentDir(), p.cfg.Layouts.System, p.cfg.SystemImage); err != nil {
		return err
	}

	var tmpDir string
	if err := p.stage(ctx, StageTempDir, "", func(context.Context) error {
		dir, err := os.MkdirTemp("", "cvd2img-*")
		tmpDir = dir
		return err
	}); err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	gen := artifacts.NewGenerator(p.paths, p.runner, tmpDir, p.logger)

	p.logger.InfoContext(ctx, "creating persistent components", "path", tmpDir)
	if err := p.stage(ctx, StageUboot, "", gen.CreateUbootEnv); err != nil {
		return err
	}
	if err := p.stage(ctx, StageVBMeta, "", gen.CreateVBMeta); err != nil {
		return err
	}
	if err := p.bootconfig(ctx, gen, false); err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "creating disk image", "image", p.cfg.PropertiesImage)
	if err := p.buildImage(ctx, tmpDir, p.cfg.Layouts.Properties, p.cfg.PropertiesImage); err != nil {
		return err
	}

	if err := p.bootconfig(ctx, gen, true); err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "creating disk image", "image", p.cfg.VirglPropertiesImage)
	return p.buildImage(ctx, tmpDir, p.cfg.Layouts.Properties, p.cfg.VirglPropertiesImage)
}

// buildImage assembles entries from baseDir into outFile and partitions it.
func (p *Pipeline) buildImage(ctx context.Context, baseDir string, entries []layout.Entry, outFile string) error {
	var laid []disk.LaidOutPartition
	if err := p.stage(ctx, StageDiskImage, outFile, func(ctx context.Context) error {
		var err error
		laid, err = p.assembler.Assemble(ctx, baseDir, layout.Specs(entries), outFile)
		return err
	}); err != nil {
		return err
	}

	return p.stage(ctx, StagePartitions, outFile, func(context.Context) error {
		return partition.Build(laid, outFile, p.open)
	})
}

func (p *Pipeline) bootconfig(ctx context.Context, gen *artifacts.Generator, virgl bool) error {
	return p.stage(ctx, StageBootconfig, "", func(ctx context.Context) error {
		return gen.CreateBootconfig(ctx, p.cfg.Arch, virgl)
	})
}

// stage runs fn under a span, records its duration and wraps any failure
// in a *StageError. A canceled context fails the stage before fn runs.
func (p *Pipeline) stage(ctx context.Context, stage Stage, image string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: stage, Image: image, Err: err}
	}

	attrs := []attribute.KeyValue{attribute.String("stage", string(stage))}
	if image != "" {
		attrs = append(attrs, attribute.String("image", image))
	}
	ctx, span := p.tracer.Start(ctx, "cvd2img."+string(stage), trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.RecordStage(ctx, string(stage), cvdotel.StatusFailed, elapsed)
		p.logger.ErrorContext(ctx, "stage failed", "stage", stage, "image", image, "error", err)
		return &StageError{Stage: stage, Image: image, Err: err}
	}

	p.metrics.RecordStage(ctx, string(stage), cvdotel.StatusSuccess, elapsed)
	p.logger.DebugContext(ctx, "stage complete", "stage", stage, "image", image, "duration", elapsed)
	return nil
}

// Validate checks that the configuration can drive a build.
func (c Config) Validate() error {
	if c.Layouts == nil {
		return fmt.Errorf("layouts not configured")
	}
	outputs := []struct{ name, path string }{
		{"system image", c.SystemImage},
		{"properties image", c.PropertiesImage},
		{"virgl properties image", c.VirglPropertiesImage},
	}
	for _, o := range outputs {
		if o.path == "" {
			return fmt.Errorf("%s path is empty", o.name)
		}
	}
	if _, err := artifacts.ParseArch(string(c.Arch)); err != nil {
		return err
	}
	return c.Layouts.Validate()
}
