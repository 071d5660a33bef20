package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tankyou/pkg/contracts/domain"
)

// Workbook sheet names
const (
	StationsSheet = "stations"
	PricesSheet   = "prices"
)

// XLSXExporter writes the cleaned records to a workbook with one sheet per
// output file. It satisfies the pipeline's Sink interface.
type XLSXExporter struct {
	path   string
	logger *slog.Logger
}

// NewXLSXExporter creates an exporter writing to path
func NewXLSXExporter(path string, logger *slog.Logger) *XLSXExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXExporter{path: path, logger: logger}
}

// Name identifies the exporter in logs and metrics
func (x *XLSXExporter) Name() string {
	return "workbook"
}

// Save writes stations and prices to the workbook
func (x *XLSXExporter) Save(ctx context.Context, stations []domain.StationRecord, prices []domain.PriceRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), StationsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(PricesSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	stationRows := make([][]interface{}, 0, len(stations))
	for _, s := range stations {
		stationRows = append(stationRows, []interface{}{
			s.ID, s.Owner, s.Flag, optionalInt(s.Type), s.Name, s.Address, s.City, s.Province, s.Latitude, s.Longitude,
		})
	}
	if err := writeSheet(f, StationsSheet, StationColumns, stationRows); err != nil {
		return err
	}

	priceRows := make([][]interface{}, 0, len(prices))
	for _, p := range prices {
		self := 0
		if p.Self {
			self = 1
		}
		priceRows = append(priceRows, []interface{}{
			p.StationID, p.Type, p.Price, self, optionalString(p.LastUpdate),
		})
	}
	if err := writeSheet(f, PricesSheet, PriceColumns, priceRows); err != nil {
		return err
	}

	if err := x.save(f); err != nil {
		return err
	}

	x.logger.InfoContext(ctx, "Workbook written",
		slog.String("path", x.path),
		slog.Int("stations", len(stations)),
		slog.Int("prices", len(prices)))
	return nil
}

// save writes the workbook next to its destination and renames it into place
func (x *XLSXExporter) save(f *excelize.File) error {
	dir := filepath.Dir(x.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(x.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), x.path); err != nil {
		return fmt.Errorf("failed to move workbook into place: %w", err)
	}
	return nil
}

// writeSheet streams header and rows into sheet
func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open %s sheet: %w", sheet, err)
	}

	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := sw.SetRow("A1", cells); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}

	return sw.Flush()
}

func optionalInt(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func optionalString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
