package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"tankyou/internal/config"
	apperrors "tankyou/internal/errors"
)

// Source is one remote snapshot and where it lands on disk
type Source struct {
	Name string
	URL  string
	Dest string
}

// DownloadResult describes a completed download
type DownloadResult struct {
	Name     string
	Path     string
	Bytes    int64
	Attempts int
	Duration time.Duration
}

// statusError is returned for non-200 responses
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.code, http.StatusText(e.code))
}

// retryable reports whether another attempt may succeed
func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

// Downloader fetches the MIMIT snapshots into the downloads directory
type Downloader struct {
	client  *http.Client
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

// NewDownloader creates a downloader from the source configuration
func NewDownloader(cfg config.SourceConfig, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = config.DefaultRequestsPerSecond
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}

	return &Downloader{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retries: cfg.Retries,
		backoff: time.Second,
		logger:  logger.With(slog.String("component", "downloader")),
	}
}

// Sources pairs the configured URLs with their input paths
func Sources(cfg config.SourceConfig, paths *config.Paths) []Source {
	return []Source{
		{Name: "registry", URL: cfg.StationsURL, Dest: paths.StationsInput},
		{Name: "prices", URL: cfg.PricesURL, Dest: paths.PricesInput},
	}
}

// DownloadAll fetches every source concurrently. The first failure cancels
// the others; files already moved into place are left as they are.
func (d *Downloader) DownloadAll(ctx context.Context, sources []Source) ([]DownloadResult, error) {
	results := make([]DownloadResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			res, err := d.Download(gctx, src)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Download fetches a single source, retrying transient failures with a
// quadratic backoff
func (d *Downloader) Download(ctx context.Context, src Source) (DownloadResult, error) {
	start := time.Now()
	logger := d.logger.With(slog.String("source", src.Name), slog.String("url", src.URL))

	attempts := d.retries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration((attempt-1)*(attempt-1)) * d.backoff
			logger.WarnContext(ctx, "Retrying download",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", attempts),
				slog.Duration("backoff", wait))
			select {
			case <-ctx.Done():
				return DownloadResult{}, ctx.Err()
			case <-time.After(wait):
			}
		}

		if err := d.limiter.Wait(ctx); err != nil {
			return DownloadResult{}, err
		}

		n, err := d.fetch(ctx, src)
		if err == nil {
			res := DownloadResult{
				Name:     src.Name,
				Path:     src.Dest,
				Bytes:    n,
				Attempts: attempt,
				Duration: time.Since(start),
			}
			logger.InfoContext(ctx, "Download completed",
				slog.String("path", src.Dest),
				slog.Int64("bytes", n),
				slog.Int("attempts", attempt))
			return res, nil
		}

		lastErr = err
		logger.ErrorContext(ctx, "Download attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		if ctx.Err() != nil {
			return DownloadResult{}, ctx.Err()
		}
		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			break
		}
	}

	return DownloadResult{}, apperrors.NewNetworkError(
		fmt.Sprintf("downloading %s failed", src.Name), lastErr).
		WithContext("url", src.URL)
}

// fetch streams the response body to a temp file next to Dest and renames
// it into place once complete
func (d *Downloader) fetch(ctx context.Context, src Source) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "tankyou/"+config.AppVersion)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, &statusError{code: resp.StatusCode}
	}

	dir := filepath.Dir(src.Dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(src.Dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to read body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return 0, fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), src.Dest); err != nil {
		return 0, fmt.Errorf("failed to move download into place: %w", err)
	}
	return n, nil
}
