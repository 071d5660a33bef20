package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"tankyou/internal/config"
	apperrors "tankyou/internal/errors"
	"tankyou/pkg/contracts/domain"
)

// SQLiteStore keeps a local database file
type SQLiteStore struct {
	db            *sql.DB
	stationsBatch int
	pricesBatch   int
	logger        *slog.Logger
}

// NewSQLiteStore opens the database at cfg.DSN. ":memory:" is allowed.
func NewSQLiteStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open database", err)
	}
	// a single connection keeps in-memory databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("failed to ping database", err)
	}

	stations, prices := batchSizes(cfg)
	logger.InfoContext(ctx, "Connected to SQLite", slog.String("dsn", cfg.DSN))
	return &SQLiteStore{db: db, stationsBatch: stations, pricesBatch: prices, logger: logger}, nil
}

// Migrate creates the tables if they do not exist
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewStorageError("failed to apply schema", err)
		}
	}
	return nil
}

// SaveLookups upserts the three code tables
func (s *SQLiteStore) SaveLookups(ctx context.Context, lookups domain.Lookups) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range lookupTables(lookups) {
			stmt, err := tx.PrepareContext(ctx, sqliteQuery(fmt.Sprintf(upsertLookupSQL, table.name)))
			if err != nil {
				return err
			}
			for _, row := range table.rows {
				if _, err := stmt.ExecContext(ctx, row.ID, row.Name); err != nil {
					stmt.Close()
					return fmt.Errorf("%s %d: %w", table.name, row.ID, err)
				}
			}
			stmt.Close()
		}
		return nil
	})
}

// UpsertStations inserts or updates stations, one transaction per batch
func (s *SQLiteStore) UpsertStations(ctx context.Context, stations []domain.StationRecord) error {
	for i, part := range chunk(stations, s.stationsBatch) {
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, sqliteQuery(upsertStationSQL))
			if err != nil {
				return err
			}
			defer stmt.Close()
			for _, st := range part {
				if _, err := stmt.ExecContext(ctx, st.ID, st.Owner, st.Flag, st.Type, st.Name,
					st.Address, st.City, st.Province, st.Latitude, st.Longitude); err != nil {
					return fmt.Errorf("station %d: %w", st.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("station batch %d failed", i), err)
		}
	}

	s.logger.DebugContext(ctx, "Stations upserted", slog.Int("count", len(stations)))
	return nil
}

// ReplacePrices swaps the price table for prices in a single transaction
func (s *SQLiteStore) ReplacePrices(ctx context.Context, prices []domain.PriceRecord) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fuels`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, sqliteQuery(insertPriceSQL))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, part := range chunk(prices, s.pricesBatch) {
			for _, p := range part {
				if _, err := stmt.ExecContext(ctx, p.StationID, p.Type, p.Price, p.Self, p.LastUpdate); err != nil {
					return fmt.Errorf("price %d/%d: %w", p.StationID, p.Type, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.NewStorageError("failed to replace prices", err)
	}

	s.logger.DebugContext(ctx, "Prices replaced", slog.Int("count", len(prices)))
	return nil
}

// Stats counts stored stations and prices
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gas_stations`).Scan(&st.Stations); err != nil {
		return Stats{}, apperrors.NewStorageError("failed to count stations", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fuels`).Scan(&st.Prices); err != nil {
		return Stats{}, apperrors.NewStorageError("failed to count prices", err)
	}
	return st, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
