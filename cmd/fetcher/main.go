// Command fetcher runs one pass of the MIMIT pipeline: it optionally
// downloads the registry and price snapshots, cleans them and writes the
// station and price outputs.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tankyou/internal/app"
	"tankyou/internal/config"
	"tankyou/internal/dataprocessing"
	"tankyou/internal/exporter"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, nil))
}

// run parses args, executes the pipeline once and prints the number of
// retained stations. An empty result is not an error; only bad flags or
// configuration yield a non-zero exit code.
func run(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) int {
	fs := flag.NewFlagSet("fetcher", flag.ContinueOnError)
	fs.SetOutput(stdout)
	verbose := fs.Bool("v", false, "debug logging and a per-stage summary table")
	configPath := fs.String("config", "", "YAML configuration file")
	download := fs.Bool("download", false, "download fresh snapshots before processing")
	workbook := fs.Bool("xlsx", false, "also write the xlsx workbook")
	baseDir := fs.String("dir", "", "base directory for data and logs (default: working directory)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stdout, "configuration error: %v\n", err)
		return 1
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if *download {
		cfg.Source.Download = true
	}
	if *workbook {
		cfg.Export.Workbook = true
	}
	if *baseDir != "" {
		cfg.Paths.BaseDir = *baseDir
	}

	a, err := app.New(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		fmt.Fprintf(stdout, "initialization error: %v\n", err)
		return 1
	}
	defer a.Close(context.WithoutCancel(ctx))

	result := a.RunOnce(ctx)

	fmt.Fprintf(stdout, "retained stations: %d\n", len(result.IDs))
	if *verbose {
		if err := exporter.WriteSummary(stdout, summaryRows(result)); err != nil {
			a.Logger.WarnContext(ctx, "Failed to print summary", slog.String("error", err.Error()))
		}
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func summaryRows(result dataprocessing.Result) []exporter.SummaryRow {
	rows := []exporter.SummaryRow{stageRow("registry", result.Registry)}
	if result.PricesRan {
		rows = append(rows, stageRow("prices", result.Price))
	}
	return rows
}

func stageRow(stage string, s dataprocessing.StageResult) exporter.SummaryRow {
	return exporter.SummaryRow{
		Stage:    stage,
		Outcome:  s.Outcome.String(),
		Read:     s.Read,
		Skipped:  s.Skipped,
		Filtered: s.Filtered,
		Dropped:  s.Dropped,
		Kept:     s.Kept,
	}
}
