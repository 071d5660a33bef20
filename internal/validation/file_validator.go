package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tankyou/internal/config"
)

// FileValidator checks the directories and snapshots the fetcher depends on
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateWritableDirectory creates dir if needed and proves it accepts new
// files by writing and removing a probe
func (v *FileValidator) ValidateWritableDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}

// ValidateSnapshot checks that path is a readable, non-empty CSV file
func (v *FileValidator) ValidateSnapshot(path string) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".csv" {
		return fmt.Errorf("file %s is not a CSV file (extension: %s)", path, ext)
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file %s is empty", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("Snapshot validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// StartupCheck returns one warning per problem found. Missing snapshots are
// only reported when nothing will download them.
func (v *FileValidator) StartupCheck(paths *config.Paths, download bool) []string {
	var warnings []string

	directories := []struct {
		name string
		dir  string
	}{
		{"downloads", paths.DownloadsDir},
		{"output", paths.OutputDir},
		{"logs", paths.LogsDir},
	}
	for _, d := range directories {
		if err := v.ValidateWritableDirectory(d.dir); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory: %v", d.name, err))
		}
	}

	if !download {
		for _, path := range []string{paths.StationsInput, paths.PricesInput} {
			if err := v.ValidateSnapshot(path); err != nil {
				warnings = append(warnings, err.Error())
			}
		}
	}

	if len(warnings) > 0 {
		v.logger.Warn("Startup check found problems",
			slog.Int("count", len(warnings)),
			slog.String("warnings", strings.Join(warnings, "; ")))
	} else {
		v.logger.Info("Startup check passed")
	}
	return warnings
}
