package exporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankyou/pkg/contracts/domain"
)

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

func newTestWriter() *CSVWriter { return NewCSVWriter(';', nil) }

func sampleStations() []domain.StationRecord {
	return []domain.StationRecord{
		{ID: 1001, Owner: "Rossi Srl", Flag: 3, Type: intPtr(1), Name: "ESSO Via Roma", Address: "Via Roma 1", City: "Torino", Province: "TO", Latitude: 45.07, Longitude: 7.68},
		{ID: 1002, Owner: "Bianchi; Figli", Flag: 5, Name: "Q8 \"Nord\"", City: "Milano", Province: "MI", Latitude: 45.4642035, Longitude: 9.19},
	}
}

func samplePrices() []domain.PriceRecord {
	return []domain.PriceRecord{
		{StationID: 1001, Type: 1, Price: 1.859, Self: true, LastUpdate: strPtr("2024-02-01 08:00:00")},
		{StationID: 1002, Type: 4, Price: 0.7, Self: false},
	}
}

func TestWriteStations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gas_stations.csv")

	require.NoError(t, newTestWriter().WriteStations(path, sampleStations()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"id;owner;flag;type;name;address;city;province;latitude;longitude\n"+
			"1001;Rossi Srl;3;1;ESSO Via Roma;Via Roma 1;Torino;TO;45.07;7.68\n"+
			"1002;\"Bianchi; Figli\";5;;\"Q8 \"\"Nord\"\"\";;Milano;MI;45.4642035;9.19\n",
		string(content))
}

func TestWritePrices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fuel_prices.csv")

	require.NoError(t, newTestWriter().WritePrices(path, samplePrices()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"station_id;type;price;self;last_update\n"+
			"1001;1;1.859;1;2024-02-01 08:00:00\n"+
			"1002;4;0.7;0;\n",
		string(content))
}

func TestWriteEmptySets(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter()

	require.NoError(t, w.WriteStations(filepath.Join(dir, "s.csv"), nil))
	require.NoError(t, w.WritePrices(filepath.Join(dir, "p.csv"), []domain.PriceRecord{}))

	s, err := os.ReadFile(filepath.Join(dir, "s.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id;owner;flag;type;name;address;city;province;latitude;longitude\n", string(s))

	p, err := os.ReadFile(filepath.Join(dir, "p.csv"))
	require.NoError(t, err)
	assert.Equal(t, "station_id;type;price;self;last_update\n", string(p))
}

func TestWriteCSVReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("old content that is longer than the new one\n"), 0644))

	require.NoError(t, newTestWriter().WriteCSV(path, WriteOptions{Headers: []string{"a", "b"}, Records: [][]string{{"1", "2"}}}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a;b\n1;2\n", string(content))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestReadBack(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter()

	stationsPath := filepath.Join(dir, "gas_stations.csv")
	require.NoError(t, w.WriteStations(stationsPath, sampleStations()))
	stations, err := w.ReadStations(stationsPath)
	require.NoError(t, err)
	assert.Equal(t, sampleStations(), stations)

	pricesPath := filepath.Join(dir, "fuel_prices.csv")
	require.NoError(t, w.WritePrices(pricesPath, samplePrices()))
	prices, err := w.ReadPrices(pricesPath)
	require.NoError(t, err)
	assert.Equal(t, samplePrices(), prices)
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter()

	tests := []struct {
		name    string
		content string
		read    func(string) error
	}{
		{
			name:    "wrong header",
			content: "id;name\n1;x\n",
			read:    func(p string) error { _, err := w.ReadStations(p); return err },
		},
		{
			name:    "bad station id",
			content: "id;owner;flag;type;name;address;city;province;latitude;longitude\nx;;1;;;;;;1;1\n",
			read:    func(p string) error { _, err := w.ReadStations(p); return err },
		},
		{
			name:    "bad price",
			content: "station_id;type;price;self;last_update\n1;1;cheap;1;\n",
			read:    func(p string) error { _, err := w.ReadPrices(p); return err },
		},
		{
			name:    "wrong field count",
			content: "station_id;type;price;self;last_update\n1;1;1.5\n",
			read:    func(p string) error { _, err := w.ReadPrices(p); return err },
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "case"+string(rune('a'+i))+".csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			assert.Error(t, tt.read(path))
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := w.ReadStations(filepath.Join(dir, "absent.csv"))
		assert.True(t, os.IsNotExist(err))
	})
}
