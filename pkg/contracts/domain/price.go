package domain

// RawPriceRow is one record of the price listing before normalization
type RawPriceRow struct {
	Fuel      string
	StationID string
	Price     string
	Self      string
	Timestamp string
	Line      int
}

// PriceRecord represents a normalized fuel price. StationID always
// references a StationRecord produced by the same pipeline run.
type PriceRecord struct {
	StationID  int64   `json:"station_id" db:"station_id" validate:"required,gt=0"`
	Type       int     `json:"type" db:"type" validate:"required,min=1"`
	Price      float64 `json:"price" db:"price" validate:"gte=0"`
	Self       bool    `json:"self" db:"self"`
	LastUpdate *string `json:"last_update" db:"last_update"`
}
