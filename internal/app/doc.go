// Package app wires the fetcher components together and manages their
// lifecycle.
//
// # Initialization Flow
//
//	1. Build the JSON logger from the logging configuration
//	2. Resolve and create the data, downloads, output and logs directories
//	3. Initialize tracing and the Prometheus registry
//	4. Open the database store when a driver is configured
//	5. Assemble the pipeline with its optional workbook and database sinks
//	6. Create the data and health services and the HTTP router
//
// Both binaries share this wiring. cmd/fetcher calls RunOnce and exits;
// cmd/server calls Run, which serves the API until its context is
// cancelled and then shuts the server down gracefully.
//
// # Usage
//
//	a, err := app.New(ctx, cfg, app.Options{})
//	if err != nil {
//	    return err
//	}
//	return a.Run(ctx)
package app
