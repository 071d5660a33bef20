package storage

import (
	"context"
	"fmt"
	"log/slog"

	"tankyou/internal/config"
	apperrors "tankyou/internal/errors"
	"tankyou/pkg/contracts/domain"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is a database holding the code tables, stations and prices
type Store interface {
	Migrate(ctx context.Context) error
	SaveLookups(ctx context.Context, lookups domain.Lookups) error
	UpsertStations(ctx context.Context, stations []domain.StationRecord) error
	ReplacePrices(ctx context.Context, prices []domain.PriceRecord) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Stats counts the rows currently stored
type Stats struct {
	Stations int `json:"stations"`
	Prices   int `json:"prices"`
}

// Open connects to the configured database and applies the schema
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "storage"), slog.String("driver", cfg.Driver))

	var (
		store Store
		err   error
	)
	switch cfg.Driver {
	case DriverSQLite:
		store, err = NewSQLiteStore(ctx, cfg, logger)
	case DriverPostgres:
		store, err = NewPostgresStore(ctx, cfg, logger)
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unknown storage driver %q", cfg.Driver), nil)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// chunk splits items into consecutive slices of at most size elements
func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

func batchSizes(cfg config.StorageConfig) (stations, prices int) {
	stations, prices = cfg.StationBatchSize, cfg.PriceBatchSize
	if stations <= 0 {
		stations = config.DefaultStationBatchSize
	}
	if prices <= 0 {
		prices = config.DefaultPriceBatchSize
	}
	return stations, prices
}
