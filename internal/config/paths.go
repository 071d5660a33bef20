package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for every file the fetcher reads or writes.
type Paths struct {
	BaseDir      string
	DataDir      string
	DownloadsDir string
	OutputDir    string
	LogsDir      string

	// Source snapshots
	StationsInput string
	PricesInput   string

	// Cleaned outputs
	StationsOutput string
	PricesOutput   string
	WorkbookOutput string
}

// GetPaths resolves the directory layout for cfg. An empty BaseDir means the
// current working directory, which is where the original batch job ran.
//
//	<base>/
//	  ├── data/
//	  │   ├── downloads/   (raw MIMIT snapshots)
//	  │   └── output/      (gas_stations.csv, fuel_prices.csv, tankyou.xlsx)
//	  └── logs/
func GetPaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}

	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	dataDir := filepath.Join(base, DefaultDataDir)
	downloadsDir := filepath.Join(dataDir, DefaultDownloadsDir)
	outputDir := filepath.Join(dataDir, DefaultOutputDir)

	return &Paths{
		BaseDir:        base,
		DataDir:        dataDir,
		DownloadsDir:   downloadsDir,
		OutputDir:      outputDir,
		LogsDir:        filepath.Join(base, DefaultLogsDir),
		StationsInput:  within(downloadsDir, cfg.StationsFile),
		PricesInput:    within(downloadsDir, cfg.PricesFile),
		StationsOutput: within(outputDir, cfg.StationsOutput),
		PricesOutput:   within(outputDir, cfg.PricesOutput),
		WorkbookOutput: within(outputDir, cfg.WorkbookOutput),
	}, nil
}

// within joins name to dir unless name is already absolute
func within(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.DownloadsDir,
		p.OutputDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return within(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LogPathResolution logs the resolved layout at debug level
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("downloads", p.DownloadsDir),
			slog.String("output", p.OutputDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("inputs",
			slog.String("stations", p.StationsInput),
			slog.Bool("stations_exists", FileExists(p.StationsInput)),
			slog.String("prices", p.PricesInput),
			slog.Bool("prices_exists", FileExists(p.PricesInput)),
		),
		slog.Group("outputs",
			slog.String("stations", p.StationsOutput),
			slog.String("prices", p.PricesOutput),
		))
}
