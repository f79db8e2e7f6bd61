package services

import (
	"context"
	"database/sql"

	"github.com/match-developers/matchplay/repositories"
)

// Tx is the transaction surface the services need: the executor the
// repositories run on, plus commit and rollback. *sql.Tx satisfies it.
type Tx interface {
	repositories.SQLExecutor
	Commit() error
	Rollback() error
}

// TxBeginner opens write transactions for the services. Wrap a *sql.DB
// with NewSQLTxBeginner.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
}

type sqlTxBeginner struct {
	db *sql.DB
}

func NewSQLTxBeginner(db *sql.DB) TxBeginner {
	return &sqlTxBeginner{db: db}
}

func (b *sqlTxBeginner) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := b.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
