package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankyou/internal/config"
)

// TANKYOU_TEST_POSTGRES_DSN points at a disposable database
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TANKYOU_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TANKYOU_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	store, err := Open(ctx, config.StorageConfig{Driver: DriverPostgres, DSN: dsn, StationBatchSize: 1, PriceBatchSize: 2}, nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveLookups(ctx, testLookups()))
	require.NoError(t, store.UpsertStations(ctx, testStations()))
	require.NoError(t, store.ReplacePrices(ctx, testPrices()))
	require.NoError(t, store.ReplacePrices(ctx, testPrices()))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Stations, 2)
	assert.Equal(t, 3, stats.Prices)
}

func TestPostgresStoreUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials the network")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewPostgresStore(ctx, config.StorageConfig{DSN: "postgres://nobody@127.0.0.1:1/none?connect_timeout=1"}, nil)
	assert.Error(t, err)
}
