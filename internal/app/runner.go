package app

import (
	"context"
	"log/slog"

	"tankyou/internal/dataprocessing"
	"tankyou/internal/files"
	"tankyou/internal/infrastructure"
)

// pipelineRunner is the part of the pipeline the runner drives
type pipelineRunner interface {
	Run(ctx context.Context) dataprocessing.Result
}

// downloader fetches the source snapshots
type downloader interface {
	DownloadAll(ctx context.Context, sources []files.Source) ([]files.DownloadResult, error)
}

// Runner performs one complete pass: optional download, pipeline run and
// the metrics textfile. A failed download is logged and the run proceeds on
// whatever snapshots are already on disk.
type Runner struct {
	pipeline    pipelineRunner
	downloader  downloader
	sources     []files.Source
	download    bool
	telemetry   *infrastructure.Telemetry
	metricsFile string
	logger      *slog.Logger
}

// Run executes the pass under the caller's trace id, or a new one
func (r *Runner) Run(ctx context.Context) dataprocessing.Result {
	ctx = infrastructure.EnsureTraceID(ctx)

	if r.download && r.downloader != nil {
		results, err := r.downloader.DownloadAll(ctx, r.sources)
		if err != nil {
			r.logger.WarnContext(ctx, "Download failed, using existing snapshots",
				slog.String("error", err.Error()))
		} else {
			for _, res := range results {
				r.logger.DebugContext(ctx, "Snapshot downloaded",
					slog.String("source", res.Name),
					slog.Int64("bytes", res.Bytes),
					slog.Int("attempts", res.Attempts))
			}
		}
	}

	result := r.pipeline.Run(ctx)

	if r.telemetry != nil && r.metricsFile != "" {
		if err := r.telemetry.WriteTextfile(r.metricsFile); err != nil {
			r.logger.WarnContext(ctx, "Failed to write metrics textfile",
				slog.String("path", r.metricsFile),
				slog.String("error", err.Error()))
		}
	}

	return result
}
