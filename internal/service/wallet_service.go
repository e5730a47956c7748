package service

import (
	"context"
	"fmt"
	"time"

	"delegate-portal/internal/models"
	"delegate-portal/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type TopUpInput struct {
	UserID uuid.UUID
	Amount decimal.Decimal
	Reason string
}

type TransferInput struct {
	FromID uuid.UUID
	ToID   uuid.UUID
	Amount decimal.Decimal
	Reason string
}

type WalletService interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
	History(ctx context.Context, limit int) ([]models.CreditTransaction, error)
	// PayOrder settles one of the caller's orders from their credit balance.
	PayOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	TopUp(ctx context.Context, in TopUpInput) (decimal.Decimal, error)
	Transfer(ctx context.Context, in TransferInput) error
}

type walletService struct {
	repo   *repository.Repository
	events EventBus
	log    *zap.Logger
	now    func() time.Time
}

func NewWalletService(repo *repository.Repository, events EventBus, log *zap.Logger) WalletService {
	return &walletService{repo: repo, events: events, log: log, now: time.Now}
}

func (s *walletService) Balance(ctx context.Context) (decimal.Decimal, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	acc, err := s.repo.Wallets.GetAccount(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if acc == nil {
		return decimal.Zero, nil
	}
	return acc.Credit, nil
}

func (s *walletService) History(ctx context.Context, limit int) ([]models.CreditTransaction, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Wallets.ListTransactions(ctx, userID, limit)
}

func (s *walletService) PayOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	var (
		ord  *models.Order
		from models.OrderStatus
		now  = s.now()
	)
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		o, err := tx.Orders.LockForUser(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if o == nil {
			return ErrOrderNotFound
		}
		if o.Status == models.OrderStatusPaidWithCredit {
			return ErrAlreadyPaid
		}
		if err := CanTransition(o.Status, models.OrderStatusPaidWithCredit, TriggerWallet); err != nil {
			return err
		}
		if !o.TotalAmount.IsPositive() {
			return ErrInvalidAmount
		}

		ok, err := tx.Wallets.TryDebit(ctx, userID, o.TotalAmount)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientBalance
		}

		oid := o.ID
		uid := userID
		if err := tx.Wallets.CreateTransaction(ctx, &models.CreditTransaction{
			Amount:    o.TotalAmount,
			Type:      models.CreditPurchase,
			Status:    models.CreditStatusCompleted,
			FromID:    &uid,
			OrderID:   &oid,
			Actor:     actorID(userID),
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("log credit purchase: %w", err)
		}

		var changed bool
		from, changed, err = applyStatus(ctx, tx.Orders, o, models.OrderStatusPaidWithCredit, TriggerWallet, actorID(userID), now, false)
		if err != nil {
			return err
		}
		if !changed {
			// a concurrent payment settled it first; roll back this debit
			return ErrAlreadyPaid
		}
		ord = o
		return nil
	})
	if err != nil {
		s.log.Warn("pay with credit failed",
			zap.String("order_id", orderID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("order paid with credit",
		zap.String("order_id", ord.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("amount", ord.TotalAmount.StringFixed(2)),
	)
	publishStatusChanged(ctx, s.events, s.log, ord, from, now)
	return ord, nil
}

func (s *walletService) TopUp(ctx context.Context, in TopUpInput) (decimal.Decimal, error) {
	adminID, err := requireAdmin(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if !in.Amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	user, err := s.repo.Users.GetByID(ctx, in.UserID)
	if err != nil {
		return decimal.Zero, err
	}
	if user == nil {
		return decimal.Zero, ErrUserNotFound
	}

	if err := s.repo.Wallets.Credit(ctx, in.UserID, in.Amount); err != nil {
		return decimal.Zero, fmt.Errorf("credit wallet: %w", err)
	}

	to := in.UserID
	s.logTransaction(ctx, &models.CreditTransaction{
		Amount: in.Amount,
		Type:   models.CreditTopUp,
		Status: models.CreditStatusCompleted,
		ToID:   &to,
		Reason: optString(in.Reason),
		Actor:  actorID(adminID),
	})

	acc, err := s.repo.Wallets.GetAccount(ctx, in.UserID)
	if err != nil {
		return decimal.Zero, err
	}
	if acc == nil {
		return decimal.Zero, ErrUserNotFound
	}

	s.log.Info("wallet topped up",
		zap.String("user_id", in.UserID.String()),
		zap.String("amount", in.Amount.StringFixed(2)),
		zap.String("admin_id", adminID.String()),
	)
	return acc.Credit, nil
}

func (s *walletService) Transfer(ctx context.Context, in TransferInput) error {
	adminID, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	if in.FromID == in.ToID {
		return ErrSameAccount
	}
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		dest, err := tx.Users.GetByID(ctx, in.ToID)
		if err != nil {
			return err
		}
		if dest == nil {
			return ErrUserNotFound
		}

		ok, err := tx.Wallets.TryDebit(ctx, in.FromID, in.Amount)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientBalance
		}
		return tx.Wallets.Credit(ctx, in.ToID, in.Amount)
	})
	if err != nil {
		s.log.Warn("credit transfer failed",
			zap.String("from", in.FromID.String()),
			zap.String("to", in.ToID.String()),
			zap.Error(err),
		)
		return err
	}

	from, to := in.FromID, in.ToID
	s.logTransaction(ctx, &models.CreditTransaction{
		Amount: in.Amount,
		Type:   models.CreditTransfer,
		Status: models.CreditStatusCompleted,
		FromID: &from,
		ToID:   &to,
		Reason: optString(in.Reason),
		Actor:  actorID(adminID),
	})

	s.log.Info("credit transferred",
		zap.String("from", in.FromID.String()),
		zap.String("to", in.ToID.String()),
		zap.String("amount", in.Amount.StringFixed(2)),
		zap.String("admin_id", adminID.String()),
	)
	return nil
}

// logTransaction writes a ledger row after the balance change committed.
// A failure here leaves the balance as is.
func (s *walletService) logTransaction(ctx context.Context, t *models.CreditTransaction) {
	t.CreatedAt = s.now()
	if err := s.repo.Wallets.CreateTransaction(ctx, t); err != nil {
		s.log.Error("credit transaction log failed",
			zap.String("type", string(t.Type)),
			zap.String("amount", t.Amount.StringFixed(2)),
			zap.Error(err),
		)
	}
}
