package gormstore

import (
	"context"

	dsettlement "github.com/mgallardo/gamestore/internal/domain/settlement"
	"gorm.io/gorm"
)

// TxRunner binds the settlement stores to one database transaction, so
// the purchase insert, the stock decrements and the cart clear commit or
// roll back together.
type TxRunner struct {
	db *gorm.DB
}

func NewTxRunner(db *gorm.DB) *TxRunner {
	return &TxRunner{db: db}
}

func (t *TxRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context, s dsettlement.Stores) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, dsettlement.Stores{
			Purchases:    NewPurchaseRepository(tx),
			Products:     NewProductRepository(tx),
			Carts:        NewCartRepository(tx),
			Transactions: NewTransactionRepository(tx),
		})
	})
}
