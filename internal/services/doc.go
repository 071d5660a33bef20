// Package services implements the read side of the TankYou API.
//
// DataService keeps the latest gas_stations.csv and fuel_prices.csv in
// memory and answers station and price queries from that snapshot. Load
// replaces the snapshot atomically; Refresh reruns the pipeline first and
// refuses to start while another refresh is in flight.
//
// HealthService aggregates the state of the loaded data, the files on disk
// and, when configured, the database.
//
// Errors returned by both services are the API errors of
// tankyou/internal/errors, so handlers pass them straight to the error
// handler:
//
//	stations, err := svc.Stations(ctx, services.StationFilter{Province: "TO"})
//	if err != nil {
//	    h.errorHandler.HandleError(w, r, err)
//	    return
//	}
package services
