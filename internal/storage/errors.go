// Package storage defines the stores that persist swap records, MEV
// findings, arbitrage opportunities and scan progress. Records are
// written once per signature or id and never updated, except scan
// progress and unknown-program sightings, which are upserted.
package storage

import "errors"

var (
	// ErrNotFound means no record has the requested signature, id or run.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey means a signature or id was already stored. Batch
	// inserts fail as a whole when any element collides.
	ErrDuplicateKey = errors.New("record already stored")

	// ErrInvalidInput means a record lacks its key or carries an
	// unknown enum value.
	ErrInvalidInput = errors.New("invalid record")
)
