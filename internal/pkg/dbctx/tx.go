package dbctx

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// TxRunner runs fn inside one transaction. fn must route every query
// through the Context it is given.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return errors.New("transaction runner has nil db")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Context{Ctx: ctx, Tx: tx})
	})
}

// NoTx runs fn directly on the caller's context without a transaction.
type NoTx struct{}

func (NoTx) InTx(ctx context.Context, fn func(dbc Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(Context{Ctx: ctx})
}
