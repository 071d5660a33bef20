package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tankyou/internal/config"
	"tankyou/internal/dataprocessing"
	apperrors "tankyou/internal/errors"
	"tankyou/internal/exporter"
	"tankyou/internal/files"
	"tankyou/internal/infrastructure"
	customMiddleware "tankyou/internal/middleware"
	"tankyou/internal/services"
	"tankyou/internal/storage"
	handlers "tankyou/internal/transport/http"
	"tankyou/internal/validation"
)

// Options are collaborators a caller may override
type Options struct {
	// Logger replaces the logger built from Config.Logging
	Logger *slog.Logger
	// TraceOutput receives spans when the stdout trace exporter is active.
	// Defaults to os.Stderr so spans never mix with command output.
	TraceOutput io.Writer
}

// Application represents the main application container
type Application struct {
	Config    *config.Config
	Paths     *config.Paths
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Store     storage.Store // nil when no database is configured

	Pipeline      *dataprocessing.Pipeline
	Downloader    *files.Downloader
	Runner        *Runner
	DataService   *services.DataService
	HealthService *services.HealthService

	Router *chi.Mux
	Server *http.Server

	logFile *infrastructure.Logger
}

// New wires every component from cfg. Nothing listens until Run is called.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Application, error) {
	a := &Application{Config: cfg, Logger: opts.Logger}

	if a.Logger == nil {
		logger, err := infrastructure.NewLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.logFile = logger
		a.Logger = logger.Logger
	}

	a.Logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := config.GetPaths(cfg.Paths)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(a.Logger)
	a.Paths = paths

	// problems are logged, a run on missing snapshots degrades gracefully
	validation.NewFileValidator(a.Logger).StartupCheck(paths, cfg.Source.Download)

	traceOut := opts.TraceOutput
	if traceOut == nil {
		traceOut = os.Stderr
	}
	tel, err := infrastructure.InitTelemetry(cfg.Telemetry, traceOut, a.Logger)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.Telemetry = tel

	if err := a.initializeServices(ctx); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := a.setupRouter(); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	a.createServer()

	return a, nil
}

// initializeServices builds the pipeline, its sinks and the services that
// serve its outputs
func (a *Application) initializeServices(ctx context.Context) error {
	metrics, err := infrastructure.NewPipelineMetrics(a.Telemetry.Meter)
	if err != nil {
		return fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	var sinks []dataprocessing.Sink
	if a.Config.Export.Workbook {
		sinks = append(sinks, exporter.NewXLSXExporter(a.Paths.WorkbookOutput, a.Logger))
	}
	if a.Config.Storage.Driver != "" {
		store, err := storage.Open(ctx, a.Config.Storage, a.Logger)
		if err != nil {
			return err
		}
		a.Store = store
		sinks = append(sinks, storage.NewSink(store, a.Config.Pipeline.Lookups(), a.Logger))
	}

	a.Pipeline = dataprocessing.NewPipeline(a.Config.Pipeline, a.Paths, a.Logger, dataprocessing.PipelineOptions{
		Tracer:  a.Telemetry.Tracer,
		Metrics: metrics,
		Sinks:   sinks,
	})
	a.Downloader = files.NewDownloader(a.Config.Source, a.Logger)
	a.Runner = &Runner{
		pipeline:    a.Pipeline,
		downloader:  a.Downloader,
		sources:     files.Sources(a.Config.Source, a.Paths),
		download:    a.Config.Source.Download,
		telemetry:   a.Telemetry,
		metricsFile: a.Config.Telemetry.MetricsFile,
		logger:      infrastructure.WithComponent(a.Logger, "runner"),
	}

	a.DataService = services.NewDataService(a.Paths, a.Config.Pipeline, a.Runner, a.Logger)

	// avoid a typed nil inside the interface
	var stats services.StatsProvider
	if a.Store != nil {
		stats = a.Store
	}
	a.HealthService = services.NewHealthService(config.AppVersion, a.Paths, a.DataService, stats, a.Logger)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()
	errorHandler := apperrors.NewErrorHandler(a.Logger, a.Config.Logging.Level == "debug")

	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.Telemetry.Tracer, a.Telemetry.Meter)
	if err != nil {
		return err
	}
	r.Use(otelMiddleware.Handler)
	// logs every request and recovers panics as problem documents
	r.Use(apperrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Server.RateLimitRPS > 0 {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Server.RateLimitRPS,
			a.Config.Server.RateLimitBurst,
			a.Logger,
		).Handler)
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Mount("/health", handlers.NewHealthHandler(a.HealthService, a.Logger).Routes())
		r.Mount("/v1", handlers.NewDataHandler(a.DataService, a.Logger, errorHandler).Routes())
	})

	r.Handle(config.MetricsEndpoint, a.Telemetry.Handler())

	a.Router = r
	return nil
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         net.JoinHostPort(a.Config.Server.Host, strconv.Itoa(a.Config.Server.Port)),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// RunOnce executes a single fetch and pipeline pass
func (a *Application) RunOnce(ctx context.Context) dataprocessing.Result {
	return a.Runner.Run(ctx)
}

// Serve loads the current outputs and serves the API until ctx is done or
// the listener fails. It always shuts the application down before returning.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.DataService.Load(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Serving without data until the next refresh",
			slog.String("error", err.Error()))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Serve(ln)
	}()

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", ln.Addr().String()))

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Shutdown requested")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			serveErr = err
		}
	}

	if err := a.Stop(context.WithoutCancel(ctx)); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

// Run listens on the configured address and serves until ctx is done
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		a.Close(ctx)
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Stop gracefully stops the server then releases every resource
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var err error
	if shutdownErr := a.Server.Shutdown(shutdownCtx); shutdownErr != nil {
		err = fmt.Errorf("server shutdown error: %w", shutdownErr)
	}
	if closeErr := a.Close(shutdownCtx); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Close releases the store, flushes telemetry and closes the log file.
// It is safe to call on a partially built Application.
func (a *Application) Close(ctx context.Context) error {
	var errs []error

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
		a.Store = nil
	}
	if a.Telemetry != nil {
		if err := a.Telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}

	if a.Logger != nil {
		a.Logger.InfoContext(ctx, "Application shutdown complete")
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("log close: %w", err))
		}
		a.logFile = nil
	}

	return errors.Join(errs...)
}
