package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tankyou/internal/config"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Exists  bool      `json:"exists"`
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(d.basePath, path)
}

// Stat describes a single file. A missing file yields Exists=false and no error.
func (d *Discovery) Stat(path string) (FileInfo, error) {
	fullPath := d.resolve(path)
	fi := FileInfo{Path: fullPath, Name: filepath.Base(fullPath)}

	info, err := os.Stat(fullPath)
	if os.IsNotExist(err) {
		return fi, nil
	}
	if err != nil {
		return fi, fmt.Errorf("failed to stat %s: %w", fullPath, err)
	}
	if info.IsDir() {
		return fi, fmt.Errorf("%s is a directory", fullPath)
	}

	fi.Size = info.Size()
	fi.ModTime = info.ModTime()
	fi.Exists = true
	return fi, nil
}

// FindCSVFiles finds all CSV files in dir, oldest first
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Exists:  true,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.Before(files[j].ModTime)
	})

	return files, nil
}

// Inventory reports the pipeline's input and output files keyed by role
func (d *Discovery) Inventory(paths *config.Paths) (map[string]FileInfo, error) {
	roles := map[string]string{
		"stations_input":  paths.StationsInput,
		"prices_input":    paths.PricesInput,
		"stations_output": paths.StationsOutput,
		"prices_output":   paths.PricesOutput,
	}

	inventory := make(map[string]FileInfo, len(roles))
	for role, path := range roles {
		fi, err := d.Stat(path)
		if err != nil {
			return nil, err
		}
		inventory[role] = fi
	}
	return inventory, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}
