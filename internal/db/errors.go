package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Domain-level database error sentinels.
var (
	// Quote errors
	ErrQuoteNotFound = errors.New("no hitokoto found")

	// Snapshot errors
	ErrSnapshotSkew = errors.New("row count changed while listing identifiers")

	// Connection string errors
	ErrUnsupportedDialect = errors.New("unsupported database backend")
)

// Kind classifies a backing-store failure.
type Kind int

const (
	// KindQuery covers malformed statements and driver failures.
	KindQuery Kind = iota
	// KindConnection means the store could not be reached.
	KindConnection
)

func (k Kind) String() string {
	if k == KindConnection {
		return "connection error"
	}
	return "query error"
}

// StoreError wraps a failure returned by the backing store.
type StoreError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err means the backing store is unreachable.
func IsConnectionError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Kind == KindConnection
}

// wrapErr maps driver errors onto the package's error taxonomy.
// Missing rows become ErrQuoteNotFound; everything else becomes a *StoreError.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) || errors.Is(err, ErrQuoteNotFound) {
		return err
	}
	if isNoRows(err) {
		return ErrQuoteNotFound
	}
	return &StoreError{Op: op, Kind: classify(err), Err: err}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

func classify(err error) Kind {
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connectErr),
		errors.As(err, &netErr),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, context.DeadlineExceeded):
		return KindConnection
	}
	return KindQuery
}
