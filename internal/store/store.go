// Package store is the data access layer for hatchwatch.
//
// It wraps an already-opened *sql.DB (see dbopen) and keeps all SQL in one
// place. Expiry is evaluated against a caller-supplied clock so cache
// behavior is deterministic under test.
package store

import "database/sql"

// MaxConsecutiveFailures is the strike count after which a shop source is
// suspended from scraping until its next success.
const MaxConsecutiveFailures = 3

// Store wraps the hatchwatch database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
