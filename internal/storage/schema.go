package storage

import (
	"regexp"

	"tankyou/pkg/contracts/domain"
)

// Each dialect applies its statements in order. All of them are idempotent.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS gas_station_flags (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fuel_types (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS gas_station_types (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS gas_stations (
		id         INTEGER PRIMARY KEY,
		owner      TEXT NOT NULL DEFAULT '',
		flag       INTEGER NOT NULL REFERENCES gas_station_flags (id),
		type       INTEGER REFERENCES gas_station_types (id),
		name       TEXT NOT NULL DEFAULT '',
		address    TEXT NOT NULL DEFAULT '',
		city       TEXT NOT NULL DEFAULT '',
		province   TEXT NOT NULL DEFAULT '',
		latitude   REAL NOT NULL,
		longitude  REAL NOT NULL,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS fuels (
		station_id  INTEGER NOT NULL REFERENCES gas_stations (id),
		type        INTEGER NOT NULL REFERENCES fuel_types (id),
		price       REAL NOT NULL,
		self        INTEGER NOT NULL,
		last_update TEXT,
		PRIMARY KEY (station_id, type, self)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_gas_stations_flag ON gas_stations (flag)`,
	`CREATE INDEX IF NOT EXISTS idx_fuels_type ON fuels (type)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS gas_station_flags (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fuel_types (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS gas_station_types (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS gas_stations (
		id         BIGINT PRIMARY KEY,
		owner      TEXT NOT NULL DEFAULT '',
		flag       INTEGER NOT NULL REFERENCES gas_station_flags (id),
		type       INTEGER REFERENCES gas_station_types (id),
		name       TEXT NOT NULL DEFAULT '',
		address    TEXT NOT NULL DEFAULT '',
		city       TEXT NOT NULL DEFAULT '',
		province   TEXT NOT NULL DEFAULT '',
		latitude   DOUBLE PRECISION NOT NULL,
		longitude  DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS fuels (
		station_id  BIGINT NOT NULL REFERENCES gas_stations (id),
		type        INTEGER NOT NULL REFERENCES fuel_types (id),
		price       DOUBLE PRECISION NOT NULL,
		self        BOOLEAN NOT NULL,
		last_update TEXT,
		PRIMARY KEY (station_id, type, self)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_gas_stations_flag ON gas_stations (flag)`,
	`CREATE INDEX IF NOT EXISTS idx_fuels_type ON fuels (type)`,
}

const (
	upsertLookupSQL = `INSERT INTO %s (id, name) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	upsertStationSQL = `INSERT INTO gas_stations (id, owner, flag, type, name, address, city, province, latitude, longitude)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE
SET owner = EXCLUDED.owner,
    flag = EXCLUDED.flag,
    type = EXCLUDED.type,
    name = EXCLUDED.name,
    address = EXCLUDED.address,
    city = EXCLUDED.city,
    province = EXCLUDED.province,
    latitude = EXCLUDED.latitude,
    longitude = EXCLUDED.longitude`

	insertPriceSQL = `INSERT INTO fuels (station_id, type, price, self, last_update)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (station_id, type, self) DO UPDATE
SET price = EXCLUDED.price,
    last_update = EXCLUDED.last_update`
)

type lookupTable struct {
	name string
	rows []domain.Lookup
}

func lookupTables(l domain.Lookups) []lookupTable {
	return []lookupTable{
		{name: "gas_station_flags", rows: l.Flags},
		{name: "fuel_types", rows: l.FuelTypes},
		{name: "gas_station_types", rows: l.StationTypes},
	}
}

var placeholder = regexp.MustCompile(`\$\d+`)

// sqliteQuery rewrites numbered placeholders to the positional form.
// Arguments are always bound in placeholder order.
func sqliteQuery(query string) string {
	return placeholder.ReplaceAllString(query, "?")
}
