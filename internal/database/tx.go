package database

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// WithTx returns a new context carrying tx.
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetTx retrieves the transaction from ctx if one exists.
func GetTx(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok
}

// Conn returns the transaction riding in ctx, or db when there is none,
// bound to ctx. Repositories must issue every statement through it.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := GetTx(ctx); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// RunInTransaction executes fn within a database transaction.
// If ctx already carries a transaction, fn joins it and the outer caller
// decides whether to commit. Otherwise a new transaction is started and
// committed when fn returns nil, rolled back when it returns an error.
func RunInTransaction(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	if _, ok := GetTx(ctx); ok {
		return fn(ctx)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx))
	})
}

// Savepoint runs fn inside a nested transaction on the connection in ctx.
// When fn fails only its own work is rolled back; the enclosing transaction
// stays usable.
func Savepoint(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	return Conn(ctx, db).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx))
	})
}
