package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tankyou/internal/config"
	apperrors "tankyou/internal/errors"
	"tankyou/pkg/contracts/domain"
)

// PostgresStore writes to a Postgres database through a pgx pool
type PostgresStore struct {
	pool          *pgxpool.Pool
	stationsBatch int
	pricesBatch   int
	logger        *slog.Logger
}

// batchSender is satisfied by both the pool and a transaction
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// NewPostgresStore connects to cfg.DSN
func NewPostgresStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewStorageError("failed to ping database", err)
	}

	stations, prices := batchSizes(cfg)
	logger.InfoContext(ctx, "Connected to PostgreSQL")
	return &PostgresStore{pool: pool, stationsBatch: stations, pricesBatch: prices, logger: logger}, nil
}

// Migrate creates the tables if they do not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return apperrors.NewStorageError("failed to apply schema", err)
		}
	}
	return nil
}

// SaveLookups upserts the three code tables in one batch
func (s *PostgresStore) SaveLookups(ctx context.Context, lookups domain.Lookups) error {
	batch := &pgx.Batch{}
	for _, table := range lookupTables(lookups) {
		query := fmt.Sprintf(upsertLookupSQL, table.name)
		for _, row := range table.rows {
			batch.Queue(query, row.ID, row.Name)
		}
	}
	if err := sendBatch(ctx, s.pool, batch); err != nil {
		return apperrors.NewStorageError("failed to save lookups", err)
	}
	return nil
}

// UpsertStations inserts or updates stations, one round trip per batch
func (s *PostgresStore) UpsertStations(ctx context.Context, stations []domain.StationRecord) error {
	for i, part := range chunk(stations, s.stationsBatch) {
		batch := &pgx.Batch{}
		for _, st := range part {
			batch.Queue(upsertStationSQL, st.ID, st.Owner, st.Flag, st.Type, st.Name,
				st.Address, st.City, st.Province, st.Latitude, st.Longitude)
		}
		if err := sendBatch(ctx, s.pool, batch); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("station batch %d failed", i), err)
		}
	}

	s.logger.DebugContext(ctx, "Stations upserted", slog.Int("count", len(stations)))
	return nil
}

// ReplacePrices swaps the price table for prices in a single transaction
func (s *PostgresStore) ReplacePrices(ctx context.Context, prices []domain.PriceRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperrors.NewStorageError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM fuels`); err != nil {
		return apperrors.NewStorageError("failed to clear prices", err)
	}
	for i, part := range chunk(prices, s.pricesBatch) {
		batch := &pgx.Batch{}
		for _, p := range part {
			batch.Queue(insertPriceSQL, p.StationID, p.Type, p.Price, p.Self, p.LastUpdate)
		}
		if err := sendBatch(ctx, tx, batch); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("price batch %d failed", i), err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewStorageError("failed to commit prices", err)
	}

	s.logger.DebugContext(ctx, "Prices replaced", slog.Int("count", len(prices)))
	return nil
}

// Stats counts stored stations and prices
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, `SELECT (SELECT COUNT(*) FROM gas_stations), (SELECT COUNT(*) FROM fuels)`).
		Scan(&st.Stations, &st.Prices)
	if err != nil {
		return Stats{}, apperrors.NewStorageError("failed to count rows", err)
	}
	return st, nil
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func sendBatch(ctx context.Context, q batchSender, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	res := q.SendBatch(ctx, batch)
	defer res.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}
	return nil
}
