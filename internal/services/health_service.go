package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"tankyou/internal/config"
	"tankyou/internal/files"
	"tankyou/internal/storage"
)

// StatusProvider reports the state of the served data
type StatusProvider interface {
	Status() DataStatus
}

// StatsProvider reports database row counts
type StatsProvider interface {
	Stats(ctx context.Context) (storage.Stats, error)
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	paths     *config.Paths
	data      StatusProvider
	store     StatsProvider
	discovery *files.Discovery
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// NewHealthService creates a health service. store may be nil when no
// database is configured.
func NewHealthService(version string, paths *config.Paths, data StatusProvider, store StatsProvider, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.Bool("database", store != nil))

	return &HealthService{
		version:   version,
		paths:     paths,
		data:      data,
		store:     store,
		discovery: files.NewDiscovery(paths.BaseDir),
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns "ok" once data is loaded and "degraded" before that
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	status.Services["data"] = hs.checkDataHealth()
	status.Services["files"] = hs.checkFilesHealth()
	if hs.store != nil {
		status.Services["database"] = hs.checkDatabaseHealth(ctx)
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "degraded"
			break
		}
	}

	hs.logger.DebugContext(ctx, "HealthCheck: completed", slog.String("status", status.Status))
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     time.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.Format(time.RFC3339),
	}
}

func (hs *HealthService) checkDataHealth() ServiceHealth {
	st := hs.data.Status()
	if !st.Loaded {
		return ServiceHealth{Status: "not_ready", Message: "no data loaded yet", Details: st}
	}
	return ServiceHealth{Status: "ready", Details: st}
}

func (hs *HealthService) checkFilesHealth() ServiceHealth {
	inventory, err := hs.discovery.Inventory(hs.paths)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	for _, role := range []string{"stations_output", "prices_output"} {
		if !inventory[role].Exists {
			return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("%s missing", role), Details: inventory}
		}
	}
	return ServiceHealth{Status: "ready", Details: inventory}
}

func (hs *HealthService) checkDatabaseHealth(ctx context.Context) ServiceHealth {
	stats, err := hs.store.Stats(ctx)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	return ServiceHealth{Status: "ready", Details: stats}
}
