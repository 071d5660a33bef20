package dataprocessing

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tankyou/internal/config"
	apperrors "tankyou/internal/errors"
	"tankyou/internal/infrastructure"
	"tankyou/internal/shared/testutil"
	"tankyou/pkg/contracts/domain"
)

const (
	wantStations = "id;owner;flag;type;name;address;city;province;latitude;longitude\n" +
		"1001;Rossi Srl;3;1;ESSO Via Roma;Via Roma 1;Torino;TO;45.07;7.68\n" +
		"1002;Bianchi Spa;5;2;Q8 A1 Nord;A1 km 12;Milano;MI;45.46;9.19\n"
	wantPrices = "station_id;type;price;self;last_update\n" +
		"1001;1;1.859;1;2024-02-01 08:00:00\n" +
		"1001;2;1.749;0;2024-02-01 07:30:00\n" +
		"1002;4;0.729;1;\n"
)

// mockSink is a testify mock of Sink
type mockSink struct {
	mock.Mock
}

func (m *mockSink) Name() string {
	return m.Called().String(0)
}

func (m *mockSink) Save(ctx context.Context, stations []domain.StationRecord, prices []domain.PriceRecord) error {
	return m.Called(ctx, stations, prices).Error(0)
}

type panicSink struct{}

func (panicSink) Name() string { return "panicky" }
func (panicSink) Save(context.Context, []domain.StationRecord, []domain.PriceRecord) error {
	panic("sink exploded")
}

func setupPipelineEnv(t *testing.T) *config.Paths {
	t.Helper()
	cfg := config.Default().Paths
	cfg.BaseDir = t.TempDir()
	paths, err := config.GetPaths(cfg)
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestPipelineRun(t *testing.T) {
	paths := setupPipelineEnv(t)
	testutil.WriteRegistry(t, paths.DownloadsDir, testutil.SampleStations())
	testutil.WritePrices(t, paths.DownloadsDir, testutil.SamplePrices())

	logger, logs := testutil.NewTestLogger(t)
	p := NewPipeline(config.Default().Pipeline, paths, logger, PipelineOptions{})

	result := p.Run(context.Background())

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, []int64{1001, 1002}, result.IDs)
	assert.Len(t, result.Stations, 2)
	assert.Len(t, result.Prices, 3)
	assert.True(t, result.PricesRan)
	assert.Equal(t, OutcomeOK, result.Registry.Outcome)
	assert.Equal(t, OutcomeOK, result.Price.Outcome)
	assert.Empty(t, result.WriteErrors)

	assert.Equal(t, wantStations, readFile(t, paths.StationsOutput))
	assert.Equal(t, wantPrices, readFile(t, paths.PricesOutput))

	testutil.AssertLogAttr(t, logs, "component", "pipeline")
	testutil.AssertLogAttr(t, logs, "stage", "prices")
	testutil.AssertNoErrors(t, logs)
}

func TestPipelineRunIsIdempotent(t *testing.T) {
	paths := setupPipelineEnv(t)
	testutil.WriteRegistry(t, paths.DownloadsDir, testutil.SampleStations())
	testutil.WritePrices(t, paths.DownloadsDir, testutil.SamplePrices())

	p := NewPipeline(config.Default().Pipeline, paths, nil, PipelineOptions{})

	first := p.Run(context.Background())
	stations := readFile(t, paths.StationsOutput)
	prices := readFile(t, paths.PricesOutput)

	second := p.Run(context.Background())

	assert.Equal(t, first.IDs, second.IDs)
	assert.Equal(t, first.Stations, second.Stations)
	assert.Equal(t, first.Prices, second.Prices)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, stations, readFile(t, paths.StationsOutput))
	assert.Equal(t, prices, readFile(t, paths.PricesOutput))
}

func TestPipelineRunKeepsCallerTraceID(t *testing.T) {
	paths := setupPipelineEnv(t)
	p := NewPipeline(config.Default().Pipeline, paths, nil, PipelineOptions{})

	result := p.Run(infrastructure.WithTraceID(context.Background(), "run-42"))
	assert.Equal(t, "run-42", result.RunID)
}

func TestPipelineRunWithoutStationID(t *testing.T) {
	paths := setupPipelineEnv(t)

	header := []string{"Gestore", "Bandiera", "Latitudine", "Longitudine"}
	testutil.WriteDelimited(t, paths.DownloadsDir, config.DefaultStationsFile, header,
		[][]string{{"Rossi", "Esso", "45", "7"}})
	testutil.WritePrices(t, paths.DownloadsDir, testutil.SamplePrices())

	sink := &mockSink{}
	p := NewPipeline(config.Default().Pipeline, paths, nil, PipelineOptions{Sinks: []Sink{sink}})

	result := p.Run(context.Background())

	assert.Equal(t, OutcomeMissingSchema, result.Registry.Outcome)
	assert.False(t, result.PricesRan, "price stage must not run")
	assert.Zero(t, result.Price.Read)
	assert.NotNil(t, result.IDs)
	assert.Empty(t, result.IDs)
	assert.Empty(t, result.Stations)
	assert.Empty(t, result.Prices)

	assert.NoFileExists(t, paths.StationsOutput)
	assert.NoFileExists(t, paths.PricesOutput)
	sink.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipelineRunMissingRegistry(t *testing.T) {
	paths := setupPipelineEnv(t)
	p := NewPipeline(config.Default().Pipeline, paths, nil, PipelineOptions{})

	result := p.Run(context.Background())

	assert.Equal(t, OutcomeMissingInput, result.Registry.Outcome)
	assert.False(t, result.PricesRan)
	assert.Empty(t, result.IDs)
}

func TestPipelineRunMissingPrices(t *testing.T) {
	paths := setupPipelineEnv(t)
	testutil.WriteRegistry(t, paths.DownloadsDir, testutil.SampleStations())

	p := NewPipeline(config.Default().Pipeline, paths, nil, PipelineOptions{})
	result := p.Run(context.Background())

	assert.True(t, result.PricesRan)
	assert.Equal(t, OutcomeMissingInput, result.Price.Outcome)
	assert.Len(t, result.Stations, 2)
	assert.NotNil(t, result.Prices)
	assert.Empty(t, result.Prices)

	assert.Equal(t, wantStations, readFile(t, paths.StationsOutput))
	assert.Equal(t, "station_id;type;price;self;last_update\n", readFile(t, paths.PricesOutput))
}

func TestPipelineSinks(t *testing.T) {
	paths := setupPipelineEnv(t)
	testutil.WriteRegistry(t, paths.DownloadsDir, testutil.SampleStations())
	testutil.WritePrices(t, paths.DownloadsDir, testutil.SamplePrices())

	good := &mockSink{}
	good.On("Name").Return("database")
	good.On("Save", mock.Anything, mock.AnythingOfType("[]domain.StationRecord"), mock.AnythingOfType("[]domain.PriceRecord")).
		Return(nil).Once()

	bad := &mockSink{}
	bad.On("Name").Return("workbook")
	bad.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	p := NewPipeline(config.Default().Pipeline, paths, nil, PipelineOptions{
		Sinks: []Sink{good, bad, panicSink{}},
	})
	result := p.Run(context.Background())

	good.AssertExpectations(t)
	bad.AssertExpectations(t)

	assert.Len(t, result.Stations, 2)
	require.Len(t, result.WriteErrors, 2)
	assert.True(t, errors.Is(result.WriteErrors["workbook"], apperrors.ErrOutputWrite))
	assert.Contains(t, result.WriteErrors["panicky"].Error(), "sink exploded")
	assert.NotContains(t, result.WriteErrors, "database")

	// CSV outputs are unaffected by sink failures
	assert.Equal(t, wantStations, readFile(t, paths.StationsOutput))
}

func TestPipelineOutputWriteFailure(t *testing.T) {
	paths := setupPipelineEnv(t)
	testutil.WriteRegistry(t, paths.DownloadsDir, testutil.SampleStations())
	testutil.WritePrices(t, paths.DownloadsDir, testutil.SamplePrices())

	// a directory in place of the stations file makes the rename fail
	require.NoError(t, os.MkdirAll(paths.StationsOutput, 0755))
	require.NoError(t, os.WriteFile(paths.StationsOutput+"/keep", []byte("x"), 0644))

	logger, logs := testutil.NewTestLogger(t)
	p := NewPipeline(config.Default().Pipeline, paths, logger, PipelineOptions{})
	result := p.Run(context.Background())

	assert.Len(t, result.IDs, 2, "write failures do not change the result")
	assert.Len(t, result.Prices, 3)
	require.Contains(t, result.WriteErrors, OutputStations)
	assert.True(t, errors.Is(result.WriteErrors[OutputStations], apperrors.ErrOutputWrite))
	assert.NotContains(t, result.WriteErrors, OutputPrices)
	assert.Equal(t, wantPrices, readFile(t, paths.PricesOutput))
	assert.True(t, logs.ContainsMessage("output write failed"))

	entries, err := os.ReadDir(paths.OutputDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
	}
}

func TestPipelineMetrics(t *testing.T) {
	paths := setupPipelineEnv(t)
	testutil.WriteRegistry(t, paths.DownloadsDir, testutil.SampleStations())
	testutil.WritePrices(t, paths.DownloadsDir, testutil.SamplePrices())

	tel, err := infrastructure.InitTelemetry(config.TelemetryConfig{ServiceName: "test", TraceExporter: "none"}, nil, nil)
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())
	metrics, err := infrastructure.NewPipelineMetrics(tel.Meter)
	require.NoError(t, err)

	p := NewPipeline(config.Default().Pipeline, paths, nil, PipelineOptions{Tracer: tel.Tracer, Metrics: metrics})
	p.Run(context.Background())

	families, err := tel.Registry.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "tankyou_rows_kept") {
			found = true
			assert.Len(t, f.GetMetric(), 2, "one series per stage")
		}
	}
	assert.True(t, found)
}
