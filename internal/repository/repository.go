package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor runs fn against a Repository bound to a single database
// transaction. Returning an error from fn rolls everything back.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *Repository) error) error
}

type Repository struct {
	DB         *gorm.DB
	Orders     OrderRepo
	OrderItems OrderItemRepo
	Payments   PaymentRepo
	Wallets    WalletRepo
	Users      UserRepo
	Catalog    CatalogRepo
	Tx         Transactor
}

type gormTransactor struct{ db *gorm.DB }

func (t gormTransactor) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:         db,
		Orders:     NewOrderRepo(db),
		OrderItems: NewOrderItemRepo(db),
		Payments:   NewPaymentRepo(db),
		Wallets:    NewWalletRepo(db),
		Users:      NewUserRepo(db),
		Catalog:    NewCatalogRepo(db),
		Tx:         gormTransactor{db: db},
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.Tx.WithTx(ctx, fn)
}
