package walletdb

import "errors"

var (
	// ErrNotFound is returned when no record exists for the requested output.
	ErrNotFound = errors.New("walletdb: output not found")
	// ErrNilParam is returned when a required parameter is nil.
	ErrNilParam = errors.New("walletdb: nil parameter")
	// ErrSchemaVersion is returned when the database was written by an
	// incompatible version.
	ErrSchemaVersion = errors.New("walletdb: unsupported schema version")
)
