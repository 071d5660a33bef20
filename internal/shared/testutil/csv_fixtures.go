package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Banner is the first line of every MIMIT export
const Banner = "Estrazione del 2024-02-01"

// RegistryHeader is the column header of the station registry export
var RegistryHeader = []string{
	"idImpianto", "Gestore", "Bandiera", "Tipo Impianto", "Nome Impianto",
	"Indirizzo", "Comune", "Provincia", "Latitudine", "Longitudine",
}

// PriceHeader is the column header of the price export
var PriceHeader = []string{"idImpianto", "descCarburante", "prezzo", "isSelf", "dtComu"}

// StationFixture is one registry row in header order
type StationFixture struct {
	ID, Owner, Brand, Type, Name, Address, City, Province, Lat, Lon string
}

// Fields returns the row in RegistryHeader order
func (s StationFixture) Fields() []string {
	return []string{s.ID, s.Owner, s.Brand, s.Type, s.Name, s.Address, s.City, s.Province, s.Lat, s.Lon}
}

// PriceFixture is one price row in header order
type PriceFixture struct {
	StationID, Fuel, Price, Self, Timestamp string
}

// Fields returns the row in PriceHeader order
func (p PriceFixture) Fields() []string {
	return []string{p.StationID, p.Fuel, p.Price, p.Self, p.Timestamp}
}

// SampleStations covers a kept road station, a kept highway station,
// a brand outside the whitelist and a station without coordinates
func SampleStations() []StationFixture {
	return []StationFixture{
		{"1001", "Rossi Srl", "Esso", "Stradale", "ESSO Via Roma", "Via Roma 1", "Torino", "TO", "45.07", "7.68"},
		{"1002", "Bianchi Spa", "Q8", "Autostradale", "Q8 A1 Nord", "A1 km 12", "Milano", "MI", "45.46", "9.19"},
		{"1003", "Verdi", "Shell", "Stradale", "Shell Centro", "Piazza 2", "Roma", "RM", "41.9", "12.5"},
		{"1004", "Neri", "Tamoil", "Stradale", "Tamoil Sud", "Via Sud", "Napoli", "NA", "", ""},
	}
}

// SamplePrices references the sample stations. Rows for 1003 and 9999 and
// the Hydrogen row are filtered out.
func SamplePrices() []PriceFixture {
	return []PriceFixture{
		{"1001", "Benzina", "1.859", "1", "01/02/2024 08:00:00"},
		{"1001", "Diesel", "1.749", "0", "01/02/2024 07:30:00"},
		{"1002", "GPL", "0.729", "1", ""},
		{"1003", "Benzina", "1.899", "1", "01/02/2024 08:00:00"},
		{"9999", "Benzina", "1.799", "1", "01/02/2024 08:00:00"},
		{"1002", "Hydrogen", "12.5", "1", "01/02/2024 08:00:00"},
	}
}

// WriteDelimited writes banner, header and rows joined by ';' to dir/name
// and returns the file path
func WriteDelimited(t *testing.T, dir, name string, header []string, rows [][]string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString(Banner)
	b.WriteByte('\n')
	b.WriteString(strings.Join(header, ";"))
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(strings.Join(row, ";"))
		b.WriteByte('\n')
	}

	return WriteRaw(t, dir, name, b.String())
}

// WriteRaw writes content verbatim to dir/name and returns the file path
func WriteRaw(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

// WriteRegistry writes stations as a registry export
func WriteRegistry(t *testing.T, dir string, stations []StationFixture) string {
	t.Helper()
	rows := make([][]string, 0, len(stations))
	for _, s := range stations {
		rows = append(rows, s.Fields())
	}
	return WriteDelimited(t, dir, "anagrafica_impianti_attivi.csv", RegistryHeader, rows)
}

// WritePrices writes prices as a price export
func WritePrices(t *testing.T, dir string, prices []PriceFixture) string {
	t.Helper()
	rows := make([][]string, 0, len(prices))
	for _, p := range prices {
		rows = append(rows, p.Fields())
	}
	return WriteDelimited(t, dir, "prezzo_alle_8.csv", PriceHeader, rows)
}
