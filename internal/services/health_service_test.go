package services

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankyou/internal/config"
	"tankyou/internal/storage"
)

type fakeStats struct {
	stats storage.Stats
	err   error
}

func (f fakeStats) Stats(context.Context) (storage.Stats, error) { return f.stats, f.err }

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		load       bool
		store      StatsProvider
		wantStatus string
		wantDB     bool
	}{
		{name: "not loaded", load: false, wantStatus: "degraded"},
		{name: "loaded", load: true, wantStatus: "ok"},
		{name: "loaded with database", load: true, store: fakeStats{stats: storage.Stats{Stations: 3, Prices: 4}}, wantStatus: "ok", wantDB: true},
		{name: "database down", load: true, store: fakeStats{err: errors.New("connection refused")}, wantStatus: "degraded", wantDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := setupPaths(t)
			data := NewDataService(paths, config.Default().Pipeline, nil, nil)
			if tt.load {
				writeOutputs(t, paths, testStations, testPrices)
				require.NoError(t, data.Load(context.Background()))
			}

			hs := NewHealthService(config.AppVersion, paths, data, tt.store, nil)
			status := hs.HealthCheck(context.Background())

			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, config.AppVersion, status.Version)
			assert.Contains(t, status.Services, "data")
			assert.Contains(t, status.Services, "files")
			if tt.wantDB {
				assert.Contains(t, status.Services, "database")
			} else {
				assert.NotContains(t, status.Services, "database")
			}
		})
	}
}

func TestHealthCheckMissingOutputs(t *testing.T) {
	paths := setupPaths(t)
	writeOutputs(t, paths, testStations, testPrices)
	data := NewDataService(paths, config.Default().Pipeline, nil, nil)
	require.NoError(t, data.Load(context.Background()))

	require.NoError(t, os.Remove(paths.PricesOutput))

	status := NewHealthService("test", paths, data, nil, nil).HealthCheck(context.Background())
	assert.Equal(t, "degraded", status.Status)
	files := status.Services["files"].(ServiceHealth)
	assert.Equal(t, "prices_output missing", files.Message)
}

func TestLivenessAndVersion(t *testing.T) {
	paths := setupPaths(t)
	hs := NewHealthService("1.2.3", paths, NewDataService(paths, config.Default().Pipeline, nil, nil), nil, nil)

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")

	v := hs.Version()
	assert.Equal(t, "1.2.3", v["version"])
	assert.Contains(t, v, "go_version")
}
