// Package dataprocessing turns the MIMIT registry and price exports into the
// cleaned station and price sets.
//
// # Stages
//
//  1. ProcessRegistry keeps stations of whitelisted brands that have
//     coordinates and maps brand and station type to integer codes.
//  2. ProcessPrices keeps whitelisted fuels of the stations retained by the
//     registry stage and normalizes the communication timestamp.
//  3. Pipeline.Run chains both, writes gas_stations.csv and fuel_prices.csv
//     and hands the records to the configured sinks.
//
// Usage:
//
//	p := dataprocessing.NewPipeline(cfg.Pipeline, paths, logger, dataprocessing.PipelineOptions{})
//	result := p.Run(ctx)
//	fmt.Println(len(result.IDs))
//
// # Failure model
//
// No stage returns an error. A missing file, a missing required column or an
// unexpected failure empties the stage result and is reported through
// StageResult.Outcome. Rows that cannot be converted are dropped one by one
// and counted in StageResult.Dropped. Output and sink failures are logged and
// collected in Result.WriteErrors.
package dataprocessing
