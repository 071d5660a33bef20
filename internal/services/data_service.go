package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"tankyou/internal/config"
	"tankyou/internal/dataprocessing"
	apperrors "tankyou/internal/errors"
	"tankyou/internal/exporter"
	"tankyou/pkg/contracts/domain"
)

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context) dataprocessing.Result
}

// StationFilter narrows the station listing. Zero values mean no filter.
type StationFilter struct {
	Flag     int    `validate:"omitempty,min=1"`
	Province string `validate:"omitempty,len=2,alpha"`
	Limit    int    `validate:"omitempty,min=1,max=50000"`
}

// DataStatus describes what the service currently serves
type DataStatus struct {
	Loaded     bool      `json:"loaded"`
	LoadedAt   time.Time `json:"loaded_at,omitempty"`
	Stations   int       `json:"stations"`
	Prices     int       `json:"prices"`
	Refreshing bool      `json:"refreshing"`
}

// RefreshResult summarizes a pipeline run triggered through the service
type RefreshResult struct {
	RunID          string            `json:"run_id"`
	Stations       int               `json:"stations"`
	Prices         int               `json:"prices"`
	RegistryStatus string            `json:"registry_outcome"`
	PricesStatus   string            `json:"prices_outcome"`
	PricesRan      bool              `json:"prices_ran"`
	WriteErrors    map[string]string `json:"write_errors,omitempty"`
	DurationMS     int64             `json:"duration_ms"`
}

// DataService serves the pipeline outputs from memory. The snapshot is
// replaced as a whole by Load, so readers never see a half-loaded state.
type DataService struct {
	paths    *config.Paths
	lookups  domain.Lookups
	reader   *exporter.CSVWriter
	runner   Runner
	validate *validator.Validate
	logger   *slog.Logger

	refreshing atomic.Bool

	mu              sync.RWMutex
	loaded          bool
	loadedAt        time.Time
	stations        []domain.StationRecord
	stationIndex    map[int64]int
	prices          []domain.PriceRecord
	pricesByStation map[int64][]domain.PriceRecord
}

// NewDataService creates a service reading the output files in paths.
// runner may be nil, in which case Refresh only reloads the files.
func NewDataService(paths *config.Paths, pipeline config.PipelineConfig, runner Runner, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "data_service"))

	logger.Info("DataService initialized",
		slog.String("stations_output", paths.StationsOutput),
		slog.String("prices_output", paths.PricesOutput))

	return &DataService{
		paths:    paths,
		lookups:  pipeline.Lookups(),
		reader:   exporter.NewCSVWriter(pipeline.Comma(), logger),
		runner:   runner,
		validate: validator.New(),
		logger:   logger,
	}
}

// Load reads both output files and swaps them in. On error the previous
// snapshot stays in place.
func (s *DataService) Load(ctx context.Context) error {
	stations, err := s.reader.ReadStations(s.paths.StationsOutput)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load stations", slog.String("error", err.Error()))
		return apperrors.NewNotFoundError("stations output").WithContext("cause", err.Error())
	}
	prices, err := s.reader.ReadPrices(s.paths.PricesOutput)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load prices", slog.String("error", err.Error()))
		return apperrors.NewNotFoundError("prices output").WithContext("cause", err.Error())
	}

	index := make(map[int64]int, len(stations))
	for i, st := range stations {
		if _, dup := index[st.ID]; !dup {
			index[st.ID] = i
		}
	}
	byStation := make(map[int64][]domain.PriceRecord)
	for _, p := range prices {
		byStation[p.StationID] = append(byStation[p.StationID], p)
	}

	s.mu.Lock()
	s.loaded = true
	s.loadedAt = time.Now()
	s.stations = stations
	s.stationIndex = index
	s.prices = prices
	s.pricesByStation = byStation
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Data loaded",
		slog.Int("stations", len(stations)),
		slog.Int("prices", len(prices)))
	return nil
}

// Stations returns the stations matching filter in file order
func (s *DataService) Stations(ctx context.Context, filter StationFilter) ([]domain.StationRecord, error) {
	if err := s.validate.StructCtx(ctx, filter); err != nil {
		return nil, validationError(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, apperrors.ErrDataNotLoaded
	}

	out := make([]domain.StationRecord, 0)
	for _, st := range s.stations {
		if filter.Flag != 0 && st.Flag != filter.Flag {
			continue
		}
		if filter.Province != "" && !strings.EqualFold(st.Province, filter.Province) {
			continue
		}
		out = append(out, st)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Station returns one station by id
func (s *DataService) Station(ctx context.Context, id int64) (domain.StationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return domain.StationRecord{}, apperrors.ErrDataNotLoaded
	}

	i, ok := s.stationIndex[id]
	if !ok {
		return domain.StationRecord{}, apperrors.ErrStationNotFound
	}
	return s.stations[i], nil
}

// PricesForStation returns the prices of one station, ordered by fuel type
// then self service first
func (s *DataService) PricesForStation(ctx context.Context, id int64) ([]domain.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, apperrors.ErrDataNotLoaded
	}
	if _, ok := s.stationIndex[id]; !ok {
		return nil, apperrors.ErrStationNotFound
	}

	prices := append([]domain.PriceRecord{}, s.pricesByStation[id]...)
	sort.SliceStable(prices, func(i, j int) bool {
		if prices[i].Type != prices[j].Type {
			return prices[i].Type < prices[j].Type
		}
		return prices[i].Self && !prices[j].Self
	})
	return prices, nil
}

// Prices returns all prices, optionally only those of one fuel type
func (s *DataService) Prices(ctx context.Context, fuelType int) ([]domain.PriceRecord, error) {
	if fuelType < 0 || fuelType > len(s.lookups.FuelTypes) {
		return nil, apperrors.ErrValidation("type", fmt.Sprintf("must be between 1 and %d", len(s.lookups.FuelTypes)))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, apperrors.ErrDataNotLoaded
	}

	out := make([]domain.PriceRecord, 0, len(s.prices))
	for _, p := range s.prices {
		if fuelType == 0 || p.Type == fuelType {
			out = append(out, p)
		}
	}
	return out, nil
}

// Lookups returns the brand, fuel and station type code tables
func (s *DataService) Lookups() domain.Lookups {
	return s.lookups
}

// Status reports the loaded snapshot
func (s *DataService) Status() DataStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DataStatus{
		Loaded:     s.loaded,
		LoadedAt:   s.loadedAt,
		Stations:   len(s.stations),
		Prices:     len(s.prices),
		Refreshing: s.refreshing.Load(),
	}
}

// Refresh reruns the pipeline and reloads its outputs. Only one refresh
// runs at a time; a concurrent call gets ErrRefreshRunning.
func (s *DataService) Refresh(ctx context.Context) (RefreshResult, error) {
	if !s.refreshing.CompareAndSwap(false, true) {
		return RefreshResult{}, apperrors.ErrRefreshRunning
	}
	defer s.refreshing.Store(false)

	var res RefreshResult
	if s.runner != nil {
		run := s.runner.Run(ctx)
		res = RefreshResult{
			RunID:          run.RunID,
			Stations:       len(run.Stations),
			Prices:         len(run.Prices),
			RegistryStatus: run.Registry.Outcome.String(),
			PricesStatus:   run.Price.Outcome.String(),
			PricesRan:      run.PricesRan,
			DurationMS:     run.Duration.Milliseconds(),
		}
		if len(run.WriteErrors) > 0 {
			res.WriteErrors = make(map[string]string, len(run.WriteErrors))
			for name, err := range run.WriteErrors {
				res.WriteErrors[name] = err.Error()
			}
		}
		s.logger.InfoContext(ctx, "Refresh run finished",
			slog.String("run_id", run.RunID),
			slog.Int("stations", res.Stations),
			slog.Int("prices", res.Prices))

		// an empty registry writes nothing, so the old snapshot stays valid
		if len(run.Stations) == 0 {
			return res, nil
		}
	}

	if err := s.Load(ctx); err != nil {
		return res, err
	}
	if s.runner == nil {
		status := s.Status()
		res.Stations, res.Prices = status.Stations, status.Prices
	}
	return res, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.ErrValidation(strings.ToLower(fe.Field()), fmt.Sprintf("failed on the '%s' rule", fe.Tag()))
	}
	return apperrors.ErrInvalidParameter
}
