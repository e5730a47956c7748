package repository

import (
	"context"
	"errors"

	"delegate-portal/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerBalance pairs an account's stored credit with the signed sum of its
// transactions (incoming minus outgoing).
type LedgerBalance struct {
	UserID    uuid.UUID
	Credit    decimal.Decimal
	LedgerSum decimal.Decimal
}

type WalletRepo interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error)
	// TryDebit subtracts amount only if the balance covers it.
	TryDebit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error)
	// Credit adds amount, opening the account on first use.
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	CreateTransaction(ctx context.Context, t *models.CreditTransaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error)
	LedgerBalances(ctx context.Context) ([]LedgerBalance, error)
}

type walletRepo struct{ db *gorm.DB }

func NewWalletRepo(db *gorm.DB) WalletRepo { return &walletRepo{db: db} }

func (r *walletRepo) GetAccount(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error) {
	var acc models.WalletAccount
	err := r.db.WithContext(ctx).First(&acc, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &acc, err
}

func (r *walletRepo) TryDebit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
UPDATE wallet_accounts
SET credit = credit - @amount, updated_at = now()
WHERE user_id = @user AND credit >= @amount
`, map[string]any{"amount": amount, "user": userID})
	return res.RowsAffected > 0, res.Error
}

func (r *walletRepo) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Exec(`
INSERT INTO wallet_accounts (user_id, credit, created_at, updated_at)
VALUES (@user, @amount, now(), now())
ON CONFLICT (user_id) DO UPDATE
SET credit = wallet_accounts.credit + EXCLUDED.credit, updated_at = now()
`, map[string]any{"amount": amount, "user": userID}).Error
}

func (r *walletRepo) CreateTransaction(ctx context.Context, t *models.CreditTransaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *walletRepo) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("from_id = ? OR to_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *walletRepo) LedgerBalances(ctx context.Context) ([]LedgerBalance, error) {
	var rows []LedgerBalance
	err := r.db.WithContext(ctx).Raw(`
SELECT w.user_id,
       w.credit,
       COALESCE((SELECT SUM(t.amount) FROM credit_transactions t WHERE t.to_id = w.user_id), 0)
     - COALESCE((SELECT SUM(t.amount) FROM credit_transactions t WHERE t.from_id = w.user_id), 0) AS ledger_sum
FROM wallet_accounts w
ORDER BY w.user_id
`).Scan(&rows).Error
	return rows, err
}
