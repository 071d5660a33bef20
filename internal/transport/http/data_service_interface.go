package http

import (
	"context"

	"tankyou/internal/services"
	"tankyou/pkg/contracts/domain"
)

// DataServiceInterface defines the interface for station and price data
type DataServiceInterface interface {
	Stations(ctx context.Context, filter services.StationFilter) ([]domain.StationRecord, error)
	Station(ctx context.Context, id int64) (domain.StationRecord, error)
	PricesForStation(ctx context.Context, id int64) ([]domain.PriceRecord, error)
	Prices(ctx context.Context, fuelType int) ([]domain.PriceRecord, error)
	Lookups() domain.Lookups
	Refresh(ctx context.Context) (services.RefreshResult, error)
}

// HealthServiceInterface defines the interface for health reporting
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}
