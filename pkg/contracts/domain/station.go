package domain

// Station type codes as stored in the gas_station_types lookup table
const (
	StationTypeRoad    = 1
	StationTypeHighway = 2
)

// RawStationRow is one record of the registry file before normalization.
// Every field is kept as the source text; Line is the 1-based line number in
// the source file and is only used for diagnostics.
type RawStationRow struct {
	ID        string
	Owner     string
	Brand     string
	Type      string
	Name      string
	Address   string
	City      string
	Province  string
	Latitude  string
	Longitude string
	Line      int
}

// StationRecord represents a normalized fuel station
type StationRecord struct {
	ID        int64   `json:"id" db:"id" validate:"required,gt=0"`
	Owner     string  `json:"owner" db:"owner"`
	Flag      int     `json:"flag" db:"flag" validate:"required,min=1"`
	Type      *int    `json:"type" db:"type" validate:"omitempty,oneof=1 2"`
	Name      string  `json:"name" db:"name"`
	Address   string  `json:"address" db:"address"`
	City      string  `json:"city" db:"city"`
	Province  string  `json:"province" db:"province"`
	Latitude  float64 `json:"latitude" db:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude" validate:"longitude"`
}

// Lookup is an id/name pair of one of the code tables (flags, fuel types,
// station types).
type Lookup struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Lookups groups the code tables derived from the pipeline configuration
type Lookups struct {
	Flags        []Lookup `json:"flags"`
	FuelTypes    []Lookup `json:"fuel_types"`
	StationTypes []Lookup `json:"station_types"`
}
