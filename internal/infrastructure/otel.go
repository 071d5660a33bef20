package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"tankyou/internal/config"
)

// MeterName is the instrumentation scope of every tracer and meter
const MeterName = "tankyou"

// Telemetry holds the tracer, the meter and the Prometheus registry both
// metric paths (OTel instruments and native collectors) report into.
type Telemetry struct {
	Tracer   trace.Tracer
	Meter    metric.Meter
	Registry *prometheus.Registry

	shutdown []func(context.Context) error
	logger   *slog.Logger
}

// InitTelemetry wires tracing and metrics from cfg. Spans go to traceOut when
// the trace exporter is "stdout"; "none" installs a no-op tracer.
func InitTelemetry(cfg config.TelemetryConfig, traceOut io.Writer, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
	)

	t := &Telemetry{
		Registry: prometheus.NewRegistry(),
		logger:   logger,
	}
	t.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := t.initTracing(cfg, res, traceOut); err != nil {
		return nil, err
	}
	if err := t.initMetrics(res); err != nil {
		return nil, err
	}

	logger.Debug("Telemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("trace_exporter", cfg.TraceExporter))

	return t, nil
}

func (t *Telemetry) initTracing(cfg config.TelemetryConfig, res *resource.Resource, out io.Writer) error {
	switch cfg.TraceExporter {
	case "", "none":
		t.Tracer = tracenoop.NewTracerProvider().Tracer(MeterName)
		return nil
	case "stdout":
		if out == nil {
			out = io.Discard
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		t.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(config.AppVersion))
		t.shutdown = append(t.shutdown, tp.Shutdown)
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
}

func (t *Telemetry) initMetrics(res *resource.Resource) error {
	exporter, err := otelprom.New(otelprom.WithRegisterer(t.Registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion))
	t.shutdown = append(t.shutdown, mp.Shutdown)
	return nil
}

// Handler serves the registry in the Prometheus exposition format
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.Registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for the node-exporter textfile collector
func (t *Telemetry) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, t.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Shutdown flushes pending spans and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.shutdown) - 1; i >= 0; i-- {
		if err := t.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.shutdown = nil
	return errors.Join(errs...)
}

// RecordError marks span as failed
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
