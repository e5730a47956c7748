package repository

import (
	"context"

	"delegate-portal/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRepo is append-only: records are never updated or deleted.
type PaymentRepo interface {
	Create(ctx context.Context, p *models.PaymentRecord) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentRecord, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentRecord, error)
	ListByGatewayPaymentID(ctx context.Context, gateway models.PaymentGateway, paymentID string) ([]models.PaymentRecord, error)
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepo(db *gorm.DB) PaymentRepo { return &paymentRepo{db: db} }

func (r *paymentRepo) Create(ctx context.Context, p *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentRecord, error) {
	var rows []models.PaymentRecord
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *paymentRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PaymentRecord, error) {
	var rows []models.PaymentRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *paymentRepo) ListByGatewayPaymentID(ctx context.Context, gateway models.PaymentGateway, paymentID string) ([]models.PaymentRecord, error) {
	var rows []models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("gateway = ? AND gateway_payment_id = ?", gateway, paymentID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
