package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tankyou/internal/config"
	"tankyou/internal/dataprocessing"
	apperrors "tankyou/internal/errors"
	"tankyou/internal/exporter"
	"tankyou/internal/shared/testutil"
	"tankyou/pkg/contracts/domain"
)

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

var (
	testStations = []domain.StationRecord{
		{ID: 1001, Owner: "Rossi Srl", Flag: 3, Type: intPtr(1), Name: "ESSO Via Roma", City: "Torino", Province: "TO", Latitude: 45.07, Longitude: 7.68},
		{ID: 1002, Owner: "Bianchi Spa", Flag: 5, Type: intPtr(2), Name: "Q8 A1 Nord", City: "Milano", Province: "MI", Latitude: 45.46, Longitude: 9.19},
		{ID: 1005, Owner: "Verdi", Flag: 3, Name: "ESSO Corso Francia", City: "Collegno", Province: "TO", Latitude: 45.08, Longitude: 7.57},
	}
	testPrices = []domain.PriceRecord{
		{StationID: 1001, Type: 2, Price: 1.749, Self: false, LastUpdate: strPtr("2024-02-01 07:30:00")},
		{StationID: 1001, Type: 1, Price: 1.959, Self: false},
		{StationID: 1001, Type: 1, Price: 1.859, Self: true, LastUpdate: strPtr("2024-02-01 08:00:00")},
		{StationID: 1002, Type: 4, Price: 0.729, Self: true},
	}
)

// mockRunner is a testify mock of Runner
type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context) dataprocessing.Result {
	return m.Called(ctx).Get(0).(dataprocessing.Result)
}

func setupPaths(t *testing.T) *config.Paths {
	t.Helper()
	cfg := config.Default().Paths
	cfg.BaseDir = t.TempDir()
	paths, err := config.GetPaths(cfg)
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

func writeOutputs(t *testing.T, paths *config.Paths, stations []domain.StationRecord, prices []domain.PriceRecord) {
	t.Helper()
	w := exporter.NewCSVWriter(';', nil)
	require.NoError(t, w.WriteStations(paths.StationsOutput, stations))
	require.NoError(t, w.WritePrices(paths.PricesOutput, prices))
}

func loadedService(t *testing.T) *DataService {
	t.Helper()
	paths := setupPaths(t)
	writeOutputs(t, paths, testStations, testPrices)
	svc := NewDataService(paths, config.Default().Pipeline, nil, nil)
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func TestDataServiceNotLoaded(t *testing.T) {
	svc := NewDataService(setupPaths(t), config.Default().Pipeline, nil, nil)
	ctx := context.Background()

	_, err := svc.Stations(ctx, StationFilter{})
	assert.ErrorIs(t, err, apperrors.ErrDataNotLoaded)
	_, err = svc.Station(ctx, 1001)
	assert.ErrorIs(t, err, apperrors.ErrDataNotLoaded)
	_, err = svc.PricesForStation(ctx, 1001)
	assert.ErrorIs(t, err, apperrors.ErrDataNotLoaded)
	_, err = svc.Prices(ctx, 0)
	assert.ErrorIs(t, err, apperrors.ErrDataNotLoaded)

	err = svc.Load(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	assert.False(t, svc.Status().Loaded)
}

func TestDataServiceStations(t *testing.T) {
	svc := loadedService(t)

	tests := []struct {
		name    string
		filter  StationFilter
		wantIDs []int64
		wantErr bool
	}{
		{name: "all", wantIDs: []int64{1001, 1002, 1005}},
		{name: "by flag", filter: StationFilter{Flag: 3}, wantIDs: []int64{1001, 1005}},
		{name: "by province", filter: StationFilter{Province: "mi"}, wantIDs: []int64{1002}},
		{name: "flag and province", filter: StationFilter{Flag: 5, Province: "TO"}, wantIDs: []int64{}},
		{name: "limit", filter: StationFilter{Limit: 2}, wantIDs: []int64{1001, 1002}},
		{name: "invalid province", filter: StationFilter{Province: "Torino"}, wantErr: true},
		{name: "invalid flag", filter: StationFilter{Flag: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stations, err := svc.Stations(context.Background(), tt.filter)
			if tt.wantErr {
				require.Error(t, err)
				var apiErr *apperrors.APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)
				return
			}
			require.NoError(t, err)
			ids := make([]int64, 0, len(stations))
			for _, st := range stations {
				ids = append(ids, st.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestDataServiceStation(t *testing.T) {
	svc := loadedService(t)
	ctx := context.Background()

	st, err := svc.Station(ctx, 1002)
	require.NoError(t, err)
	assert.Equal(t, testStations[1], st)

	_, err = svc.Station(ctx, 42)
	assert.ErrorIs(t, err, apperrors.ErrStationNotFound)
}

func TestDataServicePricesForStation(t *testing.T) {
	svc := loadedService(t)
	ctx := context.Background()

	prices, err := svc.PricesForStation(ctx, 1001)
	require.NoError(t, err)
	require.Len(t, prices, 3)
	assert.Equal(t, 1, prices[0].Type)
	assert.True(t, prices[0].Self, "self service first")
	assert.Equal(t, 1, prices[1].Type)
	assert.False(t, prices[1].Self)
	assert.Equal(t, 2, prices[2].Type)

	prices, err = svc.PricesForStation(ctx, 1005)
	require.NoError(t, err)
	assert.NotNil(t, prices)
	assert.Empty(t, prices)

	_, err = svc.PricesForStation(ctx, 9999)
	assert.ErrorIs(t, err, apperrors.ErrStationNotFound)
}

func TestDataServicePrices(t *testing.T) {
	svc := loadedService(t)
	ctx := context.Background()

	all, err := svc.Prices(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	gpl, err := svc.Prices(ctx, 4)
	require.NoError(t, err)
	require.Len(t, gpl, 1)
	assert.Equal(t, int64(1002), gpl[0].StationID)

	_, err = svc.Prices(ctx, 9)
	require.Error(t, err)
}

func TestDataServiceLookups(t *testing.T) {
	svc := NewDataService(setupPaths(t), config.Default().Pipeline, nil, nil)
	lookups := svc.Lookups()

	require.Len(t, lookups.Flags, 6)
	assert.Equal(t, domain.Lookup{ID: 3, Name: "Esso"}, lookups.Flags[2])
	require.Len(t, lookups.FuelTypes, 4)
	assert.Equal(t, domain.Lookup{ID: 1, Name: "Benzina"}, lookups.FuelTypes[0])
	assert.Len(t, lookups.StationTypes, 2)
}

func TestDataServiceRefresh(t *testing.T) {
	paths := setupPaths(t)
	writeOutputs(t, paths, testStations[:1], nil)

	runner := &mockRunner{}
	runner.On("Run", mock.Anything).Run(func(mock.Arguments) {
		writeOutputs(t, paths, testStations, testPrices)
	}).Return(dataprocessing.Result{
		RunID:       "run-1",
		Stations:    testStations,
		Prices:      testPrices,
		PricesRan:   true,
		WriteErrors: map[string]error{"workbook": errors.New("disk full")},
		Duration:    1500 * time.Millisecond,
	}).Once()

	logger, logs := testutil.NewTestLogger(t)
	svc := NewDataService(paths, config.Default().Pipeline, runner, logger)
	require.NoError(t, svc.Load(context.Background()))
	assert.Equal(t, 1, svc.Status().Stations)

	res, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	runner.AssertExpectations(t)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 3, res.Stations)
	assert.Equal(t, 4, res.Prices)
	assert.Equal(t, "ok", res.RegistryStatus)
	assert.True(t, res.PricesRan)
	assert.Equal(t, map[string]string{"workbook": "disk full"}, res.WriteErrors)
	assert.EqualValues(t, 1500, res.DurationMS)

	status := svc.Status()
	assert.Equal(t, 3, status.Stations)
	assert.Equal(t, 4, status.Prices)
	assert.False(t, status.Refreshing)
	assert.True(t, logs.ContainsMessage("Refresh run finished"))
}

func TestDataServiceRefreshEmptyRunKeepsSnapshot(t *testing.T) {
	paths := setupPaths(t)
	writeOutputs(t, paths, testStations, testPrices)

	runner := &mockRunner{}
	runner.On("Run", mock.Anything).Return(dataprocessing.Result{
		RunID:    "run-2",
		Registry: dataprocessing.StageResult{Outcome: dataprocessing.OutcomeMissingSchema},
	})

	svc := NewDataService(paths, config.Default().Pipeline, runner, nil)
	require.NoError(t, svc.Load(context.Background()))
	loadedAt := svc.Status().LoadedAt

	res, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "missing_schema", res.RegistryStatus)
	assert.Zero(t, res.Stations)
	assert.Equal(t, loadedAt, svc.Status().LoadedAt, "snapshot not reloaded")
	assert.Equal(t, 3, svc.Status().Stations)
}

func TestDataServiceRefreshWithoutRunner(t *testing.T) {
	paths := setupPaths(t)
	writeOutputs(t, paths, testStations, testPrices)

	svc := NewDataService(paths, config.Default().Pipeline, nil, nil)
	res, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stations)
	assert.Equal(t, 4, res.Prices)
	assert.True(t, svc.Status().Loaded)
}

func TestDataServiceRefreshIsExclusive(t *testing.T) {
	paths := setupPaths(t)
	writeOutputs(t, paths, testStations, testPrices)

	started := make(chan struct{})
	release := make(chan struct{})
	runner := &mockRunner{}
	runner.On("Run", mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(dataprocessing.Result{RunID: "slow", Stations: testStations}).Once()

	svc := NewDataService(paths, config.Default().Pipeline, runner, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Refresh(context.Background())
		assert.NoError(t, err)
	}()

	<-started
	assert.True(t, svc.Status().Refreshing)
	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrRefreshRunning)

	close(release)
	wg.Wait()
	assert.False(t, svc.Status().Refreshing)
	runner.AssertExpectations(t)
}

func TestDataServiceConcurrentReads(t *testing.T) {
	svc := loadedService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Stations(ctx, StationFilter{Province: "TO"})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Load(ctx))
		}()
	}
	wg.Wait()
}
