package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// Postgres error codes
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeInvalidText         = "22P02"
)

type (
	// DB runs the repositories on Postgres. Transactions are carried by the context.
	DB struct {
		db *sqlx.DB
	}

	txKey struct{}

	tx struct {
		db         *DB
		tx         *sqlx.Tx
		savepoints int
	}
)

var _ core.Transactor = (*DB)(nil)

func New(db *sqlx.DB) *DB {
	return &DB{db: db}
}

// InTx runs fn in a REPEATABLE READ transaction.
// A ctx already carrying a transaction of db runs fn in a savepoint of it.
func (d *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t := d.txFrom(ctx); t != nil {
		return t.savepoint(ctx, fn)
	}

	sqlTx, err := d.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(context.WithValue(ctx, txKey{}, &tx{db: d, tx: sqlTx})); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back transaction: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(sqlTx.Commit(), "committing transaction")
}

// savepoint runs fn so that a failure undoes only its own statements, and leaves the transaction usable.
func (t *tx) savepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	t.savepoints++
	name := "sp_" + strconv.Itoa(t.savepoints)
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return errors.Wrap(err, "creating savepoint")
	}
	if err := fn(ctx); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Wrapf(err, "rolling back to savepoint: %v", rbErr)
		}
		return err
	}
	_, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return errors.Wrap(err, "releasing savepoint")
}

func (d *DB) txFrom(ctx context.Context) *tx {
	if t, ok := ctx.Value(txKey{}).(*tx); ok && t.db == d {
		return t
	}
	return nil
}

// exec returns the transaction carried by ctx, or the pool.
func (d *DB) exec(ctx context.Context) sqlx.ExtContext {
	if t := d.txFrom(ctx); t != nil {
		return t.tx
	}
	return d.db
}

func pqError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

// notFound returns nf when err means the row does not exist (including malformed ids).
func notFound(err error, nf error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nf
	}
	if pqErr, ok := pqError(err); ok && pqErr.Code == codeInvalidText {
		return nf
	}
	return errors.Wrap(err, msg)
}

// violation maps err by violated constraint name, then by error code. Other errors are wrapped with msg.
func violation(err error, msg string, mapped map[string]error) error {
	if pqErr, ok := pqError(err); ok {
		if e, found := mapped[pqErr.Constraint]; found {
			return e
		}
		if e, found := mapped[string(pqErr.Code)]; found {
			return e
		}
	}
	return errors.Wrap(err, msg)
}

func checkAffected(res sql.Result, nf error, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return nf
	}
	return nil
}
