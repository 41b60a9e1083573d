package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "docvault/pkg/domain-errors"
	txcontext "docvault/pkg/platform/tx"
)

const defaultRevocationTxTimeout = 5 * time.Second

// revocationPostgresTx runs the revocation unit of work in one database
// transaction. A transaction-scoped advisory lock on the document key
// serializes revokes and reinstates of the same document; the partial
// unique index still rejects any writer that slips past it.
type revocationPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newRevocationPostgresTx(db *sql.DB, timeout time.Duration) *revocationPostgresTx {
	return &revocationPostgresTx{db: db, timeout: timeout}
}

func (t *revocationPostgresTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultRevocationTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to lock document")
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "failed to commit transaction")
	}
	return nil
}
