package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"pharmapos/m/internal/pos"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrStaleRecord is returned when a compare-and-swap update loses to a
// concurrent write (the row's lock_version no longer matches).
var ErrStaleRecord = errors.New("record was modified concurrently")

// Store wraps the database handle and implements pos.TxRunner along with
// the CRUD queries used by the HTTP layer.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// InTx runs fn inside one immediate write transaction. The connection is
// opened with _txlock=immediate, so the SQLite write lock is taken before
// fn's first read; concurrent sales serialize here.
func (s *Store) InTx(ctx context.Context, fn func(pos.Stores) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	st := pos.Stores{
		Catalog: &txCatalog{tx: tx},
		Ledger:  &txLedger{tx: tx},
	}
	if err := fn(st); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// IsTransient reports whether err is a store-level failure worth
// retrying (lock contention, busy database). Domain errors never
// classify as transient.
func IsTransient(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

var _ pos.TxRunner = (*Store)(nil)

func nullIfEmpty(val string) *string {
	if val == "" {
		return nil
	}
	return &val
}
