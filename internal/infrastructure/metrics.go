package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics records row counts and run outcomes of the fetcher pipeline.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	rowsRead     metric.Int64Counter
	rowsKept     metric.Int64Counter
	rowsFiltered metric.Int64Counter
	rowsDropped  metric.Int64Counter
	stageRuns    metric.Int64Counter
	runDuration  metric.Float64Histogram
	lastSuccess  metric.Float64Gauge
	outputWrites metric.Int64Counter
}

// NewPipelineMetrics creates the pipeline instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	var err error

	if m.rowsRead, err = meter.Int64Counter(
		"tankyou_rows_read",
		metric.WithDescription("Data rows read from input files"),
	); err != nil {
		return nil, err
	}
	if m.rowsKept, err = meter.Int64Counter(
		"tankyou_rows_kept",
		metric.WithDescription("Rows that passed filtering and conversion"),
	); err != nil {
		return nil, err
	}
	if m.rowsFiltered, err = meter.Int64Counter(
		"tankyou_rows_filtered",
		metric.WithDescription("Rows excluded by whitelist or id filters"),
	); err != nil {
		return nil, err
	}
	if m.rowsDropped, err = meter.Int64Counter(
		"tankyou_rows_dropped",
		metric.WithDescription("Rows dropped because they were malformed"),
	); err != nil {
		return nil, err
	}
	if m.stageRuns, err = meter.Int64Counter(
		"tankyou_stage_runs",
		metric.WithDescription("Stage executions by outcome"),
	); err != nil {
		return nil, err
	}
	if m.runDuration, err = meter.Float64Histogram(
		"tankyou_run_duration",
		metric.WithDescription("Wall time of a full pipeline run"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.lastSuccess, err = meter.Float64Gauge(
		"tankyou_last_success_timestamp",
		metric.WithDescription("Unix time of the last run that produced stations"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.outputWrites, err = meter.Int64Counter(
		"tankyou_output_writes",
		metric.WithDescription("Output writes by target and status"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// StageCounts is what one stage reports after it ran
type StageCounts struct {
	Read     int
	Kept     int
	Filtered int
	Dropped  int
}

// RecordStage adds one stage execution
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage, outcome string, c StageCounts) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	m.rowsRead.Add(ctx, int64(c.Read), attrs)
	m.rowsKept.Add(ctx, int64(c.Kept), attrs)
	m.rowsFiltered.Add(ctx, int64(c.Filtered), attrs)
	m.rowsDropped.Add(ctx, int64(c.Dropped), attrs)
	m.stageRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("outcome", outcome),
	))
}

// RecordRun records a finished run. stations is the number of stations it produced.
func (m *PipelineMetrics) RecordRun(ctx context.Context, d time.Duration, stations int) {
	if m == nil {
		return
	}
	status := "empty"
	if stations > 0 {
		status = "ok"
		m.lastSuccess.Record(ctx, float64(time.Now().Unix()))
	}
	m.runDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}

// RecordWrite counts one output write attempt
func (m *PipelineMetrics) RecordWrite(ctx context.Context, target string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.outputWrites.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("status", status),
	))
}
