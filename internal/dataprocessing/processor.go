package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"tankyou/internal/config"
	apperrors "tankyou/internal/errors"
	"tankyou/internal/infrastructure"
)

// Processor runs the registry and price stages with one immutable
// PipelineConfig
type Processor struct {
	cfg    config.PipelineConfig
	logger *slog.Logger
	tracer trace.Tracer
}

// NewProcessor creates a processor. A nil logger discards output and a nil
// tracer records no spans.
func NewProcessor(cfg config.PipelineConfig, logger *slog.Logger, tracer trace.Tracer) *Processor {
	if logger == nil {
		logger = infrastructure.DiscardLogger()
	}
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(infrastructure.MeterName)
	}
	return &Processor{
		cfg:    cfg,
		logger: logger,
		tracer: tracer,
	}
}

// Config returns the pipeline configuration the processor was built with
func (p *Processor) Config() config.PipelineConfig {
	return p.cfg
}

// ProcessRegistry runs the registry stage with cfg and no logging
func ProcessRegistry(ctx context.Context, path string, cfg config.PipelineConfig) RegistryResult {
	return NewProcessor(cfg, nil, nil).ProcessRegistry(ctx, path)
}

// ProcessPrices runs the price stage with cfg and no logging
func ProcessPrices(ctx context.Context, path string, validIDs []int64, cfg config.PipelineConfig) PriceResult {
	return NewProcessor(cfg, nil, nil).ProcessPrices(ctx, path, validIDs)
}

// open parses path, translating failures into a stage outcome
func (p *Processor) open(path string, required []string) (*table, StageResult) {
	t, err := readDelimited(path, p.cfg.Comma(), p.cfg.SkipLines)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, StageResult{Outcome: OutcomeMissingInput, Err: apperrors.NewMissingInputError(path)}
		}
		return nil, StageResult{Outcome: OutcomeFailed, Err: apperrors.NewParsingError("cannot parse "+path, err)}
	}

	if missing := t.missing(required...); len(missing) > 0 {
		return nil, StageResult{
			Outcome: OutcomeMissingSchema,
			Read:    len(t.rows),
			Skipped: t.skipped,
			Err:     apperrors.NewMissingColumnsError(path, missing),
		}
	}

	return t, StageResult{Outcome: OutcomeOK, Read: len(t.rows), Skipped: t.skipped}
}

// finish annotates the span and logs the stage summary
func (p *Processor) finish(ctx context.Context, span trace.Span, logger *slog.Logger, r StageResult) {
	span.SetAttributes(
		attribute.String("outcome", r.Outcome.String()),
		attribute.Int("rows.read", r.Read),
		attribute.Int("rows.skipped", r.Skipped),
		attribute.Int("rows.filtered", r.Filtered),
		attribute.Int("rows.dropped", r.Dropped),
		attribute.Int("rows.kept", r.Kept),
	)

	attrs := []any{
		slog.String("outcome", r.Outcome.String()),
		slog.Int("read", r.Read),
		slog.Int("skipped", r.Skipped),
		slog.Int("filtered", r.Filtered),
		slog.Int("dropped", r.Dropped),
		slog.Int("kept", r.Kept),
	}

	if !r.OK() {
		infrastructure.RecordError(span, r.Err)
		if r.Err != nil {
			attrs = append(attrs, slog.String("error", r.Err.Error()))
		}
		logger.WarnContext(ctx, "stage produced no rows", attrs...)
		return
	}
	logger.InfoContext(ctx, "stage completed", attrs...)
}

// recovered converts a panic value into a failed stage
func recovered(rec any) StageResult {
	return StageResult{Outcome: OutcomeFailed, Err: fmt.Errorf("unexpected failure: %v", rec)}
}

// parseStationID accepts positive integer ids only
func parseStationID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid station id %d", id)
	}
	return id, nil
}

// parseDecimal accepts both '.' and the Italian ',' as decimal separator
func parseDecimal(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}
