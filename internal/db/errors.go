package db

import "errors"

var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrNotReady    = errors.New("db: not ready")
)

// Op names the failing command or query.
const (
	OpPing   = "PING"
	OpGet    = "GET"
	OpSet    = "SET"
	OpIncr   = "INCRBY+EXPIRE"
	OpScan   = "SCAN"
	OpUnlink = "UNLINK"
	OpQuery  = "QUERY"
	OpOpen   = "OPEN"
)

// Error carries the operation that failed alongside the driver error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
