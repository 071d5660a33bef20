// Package http implements the HTTP handlers of the station query API.
//
// Handlers stay thin: they parse path and query parameters, call the data or
// health service and render JSON. Every error is passed to the shared
// ErrorHandler, which answers with an RFC 7807 problem document:
//
//	{
//	    "type": "/errors/station/not-found",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "Station not found",
//	    "instance": "/api/v1/stations/42"
//	}
//
// Routes exposed by DataHandler, mounted under /api/v1:
//
//	GET  /stations?flag=&province=&limit=
//	GET  /stations/{id}
//	GET  /stations/{id}/prices
//	GET  /prices?type=
//	GET  /lookups
//	POST /refresh
//
// HealthHandler is mounted under /api/health.
package http
