package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound  = errors.New("db: key not found")
	ErrViewNotFound = errors.New("db: view not found")
)

// Op names for error context.
const (
	OpPing     = "PING"
	OpQuery    = "QUERY"
	OpCount    = "COUNT"
	OpScan     = "SCAN"
	OpDescribe = "DESCRIBE"
	OpGet      = "GET"
	OpSet      = "SET"
	OpDel      = "DEL"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
