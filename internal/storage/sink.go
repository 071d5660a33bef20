package storage

import (
	"context"
	"log/slog"

	"tankyou/pkg/contracts/domain"
)

// Sink writes a pipeline run to a Store
type Sink struct {
	store   Store
	lookups domain.Lookups
	logger  *slog.Logger
}

// NewSink creates a sink that also refreshes the code tables on every save
func NewSink(store Store, lookups domain.Lookups, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{store: store, lookups: lookups, logger: logger.With(slog.String("component", "storage"))}
}

// Name identifies the sink in logs and metrics
func (s *Sink) Name() string {
	return "database"
}

// Save stores lookups, then stations, then prices. Prices reference
// stations, so a failed station upsert stops the save.
func (s *Sink) Save(ctx context.Context, stations []domain.StationRecord, prices []domain.PriceRecord) error {
	if err := s.store.SaveLookups(ctx, s.lookups); err != nil {
		return err
	}
	if err := s.store.UpsertStations(ctx, stations); err != nil {
		return err
	}
	if err := s.store.ReplacePrices(ctx, prices); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Database updated",
		slog.Int("stations", len(stations)),
		slog.Int("prices", len(prices)))
	return nil
}
