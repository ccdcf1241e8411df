// Package store abstracts the tabular backend of record for account rows.
// The table is an ordered sequence of fixed-width rows addressed by a
// zero-based row position that stays stable for the table's lifetime.
// Two implementations exist: MySQL for shared deployments and BoltDB for
// single-node ones. A Redis decorator can cache the full-table snapshot
// used by the claim pre-scan.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/account-allocator/internal/model"
)

// ErrUnavailable is returned when the backend cannot be reached or a
// read/write fails for infrastructure reasons. Callers must treat the
// operation as not having happened and retry from the top.
var ErrUnavailable = errors.New("store unavailable")

// ErrTimeout is returned when a backend call exceeded its deadline. An
// ambiguous timed-out write counts as failed; the caller must never assume
// partial success.
var ErrTimeout = errors.New("store timeout")

// ErrRowOutOfRange is returned when a row position does not exist in the
// table.
var ErrRowOutOfRange = errors.New("row out of range")

// Store is the adapter consumed by the account pool. Row positions are
// zero-based over data rows; implementations that model a header row hide
// it. ReadRow is the authoritative read used inside the claim critical
// section and must never serve cached data.
type Store interface {
	// ReadAllRows returns a snapshot of every data row in table order.
	ReadAllRows(ctx context.Context) ([]model.AccountRecord, error)
	// ReadRow returns the current content of one row.
	ReadRow(ctx context.Context, row int) (model.AccountRecord, error)
	// WriteCell overwrites a single cell of a row.
	WriteCell(ctx context.Context, row int, field model.Field, value string) error
	// SetRowMarker sets the row's visual annotation. Best-effort: callers
	// log failures and carry on.
	SetRowMarker(ctx context.Context, row int, marker model.RowMarker) error
}

// wrapErr classifies a backend error into the store taxonomy. Context
// deadline and cancellation map to ErrTimeout, everything else to
// ErrUnavailable. A nil error passes through.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
