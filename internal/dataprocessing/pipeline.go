package dataprocessing

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"tankyou/internal/config"
	apperrors "tankyou/internal/errors"
	"tankyou/internal/exporter"
	"tankyou/internal/infrastructure"
	"tankyou/pkg/contracts/domain"
)

// Output names used in logs, metrics and Result.WriteErrors
const (
	OutputStations = "stations_csv"
	OutputPrices   = "prices_csv"
)

// Sink receives the cleaned records of a run after the CSV outputs.
// Sink failures are logged and never affect the run result.
type Sink interface {
	Name() string
	Save(ctx context.Context, stations []domain.StationRecord, prices []domain.PriceRecord) error
}

// PipelineOptions are the optional collaborators of a Pipeline
type PipelineOptions struct {
	Tracer  trace.Tracer
	Metrics *infrastructure.PipelineMetrics
	Sinks   []Sink
}

// Pipeline runs registry then prices and writes the outputs
type Pipeline struct {
	processor *Processor
	paths     *config.Paths
	writer    *exporter.CSVWriter
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *infrastructure.PipelineMetrics
	sinks     []Sink
}

// NewPipeline creates a pipeline reading and writing the files in paths
func NewPipeline(cfg config.PipelineConfig, paths *config.Paths, logger *slog.Logger, opts PipelineOptions) *Pipeline {
	if logger == nil {
		logger = infrastructure.DiscardLogger()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(infrastructure.MeterName)
	}
	logger = infrastructure.WithComponent(logger, "pipeline")

	return &Pipeline{
		processor: NewProcessor(cfg, logger, tracer),
		paths:     paths,
		writer:    exporter.NewCSVWriter(cfg.Comma(), logger),
		logger:    logger,
		tracer:    tracer,
		metrics:   opts.Metrics,
		sinks:     opts.Sinks,
	}
}

// Result is what a run produced. IDs, Stations and Prices are empty, never
// nil, when the registry stage yielded nothing.
type Result struct {
	RunID    string
	IDs      []int64
	Stations []domain.StationRecord
	Prices   []domain.PriceRecord

	Registry StageResult
	Price    StageResult
	// PricesRan is false when the registry was empty and prices were skipped
	PricesRan bool

	// WriteErrors maps output or sink names to the error they returned
	WriteErrors map[string]error
	Duration    time.Duration
}

func emptyResult(runID string) Result {
	return Result{
		RunID:       runID,
		IDs:         []int64{},
		Stations:    []domain.StationRecord{},
		Prices:      []domain.PriceRecord{},
		WriteErrors: map[string]error{},
	}
}

// Run executes one pipeline pass. The price stage only runs when the
// registry produced stations, and outputs are only written in that case.
// Output failures are logged and recorded in WriteErrors; Run itself never
// fails.
func (p *Pipeline) Run(ctx context.Context) (result Result) {
	start := time.Now()
	ctx = infrastructure.EnsureTraceID(ctx)
	runID := infrastructure.GetTraceID(ctx)

	ctx, span := p.tracer.Start(ctx, "pipeline", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			failed := emptyResult(runID)
			failed.Registry = recovered(rec)
			p.logger.ErrorContext(ctx, "pipeline aborted", slog.Any("panic", rec))
			infrastructure.RecordError(span, failed.Registry.Err)
			result = failed
		}
		result.Duration = time.Since(start)
		p.metrics.RecordRun(ctx, result.Duration, len(result.Stations))
		span.SetAttributes(
			attribute.Int("stations", len(result.Stations)),
			attribute.Int("prices", len(result.Prices)),
		)
		p.logger.InfoContext(ctx, "pipeline finished",
			slog.Int("stations", len(result.Stations)),
			slog.Int("prices", len(result.Prices)),
			slog.Bool("prices_ran", result.PricesRan),
			slog.Duration("duration", result.Duration))
	}()

	result = emptyResult(runID)

	registry := p.processor.ProcessRegistry(ctx, p.paths.StationsInput)
	p.recordStage(ctx, "registry", registry.StageResult)
	result.Registry = registry.StageResult

	if len(registry.Stations) == 0 {
		p.logger.WarnContext(ctx, "no stations retained, skipping prices",
			slog.String("outcome", registry.Outcome.String()))
		return result
	}

	prices := p.processor.ProcessPrices(ctx, p.paths.PricesInput, registry.IDs)
	p.recordStage(ctx, "prices", prices.StageResult)
	result.Price = prices.StageResult
	result.PricesRan = true

	result.IDs = registry.IDs
	result.Stations = registry.Stations
	if prices.Prices != nil {
		result.Prices = prices.Prices
	}

	p.write(ctx, &result)
	return result
}

func (p *Pipeline) recordStage(ctx context.Context, stage string, r StageResult) {
	p.metrics.RecordStage(ctx, stage, r.Outcome.String(), infrastructure.StageCounts{
		Read:     r.Read,
		Kept:     r.Kept,
		Filtered: r.Filtered + r.Skipped,
		Dropped:  r.Dropped,
	})
}

// write persists the outputs best-effort
func (p *Pipeline) write(ctx context.Context, result *Result) {
	ctx, span := p.tracer.Start(ctx, "write")
	defer span.End()

	record := func(name string, err error) {
		p.metrics.RecordWrite(ctx, name, err)
		if err == nil {
			return
		}
		err = apperrors.NewOutputError(name, err)
		result.WriteErrors[name] = err
		infrastructure.RecordError(span, err)
		p.logger.ErrorContext(ctx, "output write failed",
			slog.String("output", name),
			slog.String("error", err.Error()))
	}

	record(OutputStations, p.writer.WriteStations(p.paths.StationsOutput, result.Stations))
	record(OutputPrices, p.writer.WritePrices(p.paths.PricesOutput, result.Prices))

	for _, sink := range p.sinks {
		record(sink.Name(), p.save(ctx, sink, result))
	}
}

// save shields the run from a panicking sink
func (p *Pipeline) save(ctx context.Context, sink Sink, result *Result) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = recovered(rec).Err
		}
	}()
	return sink.Save(ctx, result.Stations, result.Prices)
}
