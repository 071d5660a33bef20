// Package storage persists the cleaned records to a database.
//
// Two backends implement Store: PostgresStore (pgx connection pool, batched
// upserts) for the shared backend and SQLiteStore (database/sql with the
// pure Go modernc driver) for local snapshots. Stations are upserted so ids
// stay stable across runs; the price table is replaced on every run because
// each snapshot is authoritative. Sink adapts a Store to the pipeline's
// output sinks.
package storage
