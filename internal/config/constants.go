package config

import "time"

// Application constants
const (
	AppName    = "TankYou Data Fetcher"
	AppVersion = "1.0.0"
	EnvPrefix  = "TANKYOU"

	// Source files published by MIMIT (Ministero delle Imprese e del Made in Italy)
	DefaultStationsURL = "https://www.mimit.gov.it/images/exportCSV/anagrafica_impianti_attivi.csv"
	DefaultPricesURL   = "https://www.mimit.gov.it/images/exportCSV/prezzo_alle_8.csv"

	// File names (relative to the downloads and output directories)
	DefaultStationsFile   = "anagrafica_impianti_attivi.csv"
	DefaultPricesFile     = "prezzo_alle_8.csv"
	DefaultStationsOutput = "gas_stations.csv"
	DefaultPricesOutput   = "fuel_prices.csv"
	DefaultWorkbookOutput = "tankyou.xlsx"
	DefaultLogFile        = "tankyou.log"

	// CSV layout
	DefaultDelimiter = ";"
	DefaultSkipLines = 1

	// Directory layout (relative to the base directory)
	DefaultDataDir      = "data"
	DefaultDownloadsDir = "downloads"
	DefaultOutputDir    = "output"
	DefaultLogsDir      = "logs"

	// Network
	DefaultHTTPTimeout       = 60 * time.Second
	DefaultDownloadRetries   = 3
	DefaultRequestsPerSecond = 1.0

	// Database batching, mirrors the mobile client's sync chunk sizes
	DefaultStationBatchSize = 50
	DefaultPriceBatchSize   = 100

	// API
	APIBasePath     = "/api/v1"
	HealthEndpoint  = "/api/health"
	MetricsEndpoint = "/metrics"
)

// DefaultBrands is the ordered brand whitelist. The position of a brand
// defines its flag code (1-based).
func DefaultBrands() []string {
	return []string{"Agip Eni", "Api-Ip", "Esso", "Pompe Bianche", "Q8", "Tamoil"}
}

// DefaultFuels is the ordered fuel whitelist. The position of a fuel
// defines its type code (1-based).
func DefaultFuels() []string {
	return []string{"Benzina", "Diesel", "Metano", "GPL"}
}

// DefaultStationTypes maps the registry "Tipo Impianto" values to type codes
func DefaultStationTypes() map[string]int {
	return map[string]int{
		"Stradale":     1,
		"Autostradale": 2,
	}
}
