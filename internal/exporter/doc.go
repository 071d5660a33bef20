// Package exporter writes the cleaned station and price records.
//
// CSVWriter produces the semicolon-delimited gas_stations.csv and
// fuel_prices.csv files and reads them back for the API server.
// XLSXExporter mirrors both files into a workbook. WriteSummary prints the
// per-stage counts of a run as an aligned table.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(';', logger)
//	if err := w.WriteStations(paths.StationsOutput, stations); err != nil {
//	    return err
//	}
package exporter
