package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"tankyou/pkg/contracts/domain"
)

// Output column layouts
var (
	StationColumns = []string{"id", "owner", "flag", "type", "name", "address", "city", "province", "latitude", "longitude"}
	PriceColumns   = []string{"station_id", "type", "price", "self", "last_update"}
)

// CSVWriter provides delimited export and re-import of the cleaned records
type CSVWriter struct {
	comma  rune
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance using comma as delimiter
func NewCSVWriter(comma rune, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{comma: comma, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers []string
	Records [][]string
}

// WriteCSV writes headers and records to filePath. The file is written to a
// temporary sibling first and renamed into place, so readers never observe a
// half-written file and a failed write leaves the previous file untouched.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	w.logger.Debug("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := w.encode(tmp, options); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

func (w *CSVWriter) encode(out io.Writer, options WriteOptions) error {
	writer := csv.NewWriter(out)
	writer.Comma = w.comma

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteStations writes the station output file
func (w *CSVWriter) WriteStations(filePath string, stations []domain.StationRecord) error {
	records := make([][]string, 0, len(stations))
	for _, s := range stations {
		records = append(records, []string{
			formatInt(s.ID),
			s.Owner,
			formatInt(int64(s.Flag)),
			formatOptionalInt(s.Type),
			s.Name,
			s.Address,
			s.City,
			s.Province,
			formatFloat(s.Latitude),
			formatFloat(s.Longitude),
		})
	}
	return w.WriteCSV(filePath, WriteOptions{Headers: StationColumns, Records: records})
}

// WritePrices writes the price output file
func (w *CSVWriter) WritePrices(filePath string, prices []domain.PriceRecord) error {
	records := make([][]string, 0, len(prices))
	for _, p := range prices {
		records = append(records, []string{
			formatInt(p.StationID),
			formatInt(int64(p.Type)),
			formatFloat(p.Price),
			formatBool(p.Self),
			formatOptionalString(p.LastUpdate),
		})
	}
	return w.WriteCSV(filePath, WriteOptions{Headers: PriceColumns, Records: records})
}

// ReadStations loads a file previously written by WriteStations
func (w *CSVWriter) ReadStations(filePath string) ([]domain.StationRecord, error) {
	rows, err := w.readAll(filePath, StationColumns)
	if err != nil {
		return nil, err
	}

	stations := make([]domain.StationRecord, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		var s domain.StationRecord
		if s.ID, err = parseInt(row[0]); err != nil {
			return nil, fmt.Errorf("%s line %d: id: %w", filePath, line, err)
		}
		flag, err := parseInt(row[2])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: flag: %w", filePath, line, err)
		}
		s.Flag = int(flag)
		if s.Type, err = parseOptionalInt(row[3]); err != nil {
			return nil, fmt.Errorf("%s line %d: type: %w", filePath, line, err)
		}
		if s.Latitude, err = parseFloat(row[8]); err != nil {
			return nil, fmt.Errorf("%s line %d: latitude: %w", filePath, line, err)
		}
		if s.Longitude, err = parseFloat(row[9]); err != nil {
			return nil, fmt.Errorf("%s line %d: longitude: %w", filePath, line, err)
		}
		s.Owner, s.Name, s.Address, s.City, s.Province = row[1], row[4], row[5], row[6], row[7]
		stations = append(stations, s)
	}
	return stations, nil
}

// ReadPrices loads a file previously written by WritePrices
func (w *CSVWriter) ReadPrices(filePath string) ([]domain.PriceRecord, error) {
	rows, err := w.readAll(filePath, PriceColumns)
	if err != nil {
		return nil, err
	}

	prices := make([]domain.PriceRecord, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		var p domain.PriceRecord
		if p.StationID, err = parseInt(row[0]); err != nil {
			return nil, fmt.Errorf("%s line %d: station_id: %w", filePath, line, err)
		}
		fuel, err := parseInt(row[1])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: type: %w", filePath, line, err)
		}
		p.Type = int(fuel)
		if p.Price, err = parseFloat(row[2]); err != nil {
			return nil, fmt.Errorf("%s line %d: price: %w", filePath, line, err)
		}
		p.Self = row[3] == "1"
		if row[4] != "" {
			ts := row[4]
			p.LastUpdate = &ts
		}
		prices = append(prices, p)
	}
	return prices, nil
}

// readAll returns the data rows of filePath after checking its header
func (w *CSVWriter) readAll(filePath string, columns []string) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = w.comma
	reader.FieldsPerRecord = len(columns)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	if len(records) == 0 || !slices.Equal(records[0], columns) {
		return nil, fmt.Errorf("%s: unexpected header", filePath)
	}
	return records[1:], nil
}
