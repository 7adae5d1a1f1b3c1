package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Status values recorded on stage and tool metrics.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// PipelineMetrics holds metrics for the image assembly pipeline.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	StageDuration   metric.Float64Histogram
	BytesWritten    metric.Int64Counter
	ToolInvocations metric.Int64Counter
}

// NewPipelineMetrics creates metrics for the image assembly pipeline.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	stageDuration, err := meter.Float64Histogram(
		"cvd2img_stage_duration_seconds",
		metric.WithDescription("Time spent in a pipeline stage"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	bytesWritten, err := meter.Int64Counter(
		"cvd2img_bytes_written_total",
		metric.WithDescription("Total bytes written to assembled disk images"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	toolInvocations, err := meter.Int64Counter(
		"cvd2img_tool_invocations_total",
		metric.WithDescription("Total number of external tool invocations"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		StageDuration:   stageDuration,
		BytesWritten:    bytesWritten,
		ToolInvocations: toolInvocations,
	}, nil
}

// RecordStage records the duration and outcome of a pipeline stage.
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

// RecordBytes records bytes written to an output image.
func (m *PipelineMetrics) RecordBytes(ctx context.Context, image string, n int64) {
	if m == nil {
		return
	}
	m.BytesWritten.Add(ctx, n, metric.WithAttributes(attribute.String("image", image)))
}

// RecordTool records one external tool invocation.
func (m *PipelineMetrics) RecordTool(ctx context.Context, tool, status string) {
	if m == nil {
		return
	}
	m.ToolInvocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	))
}
