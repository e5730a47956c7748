package service

import (
	"context"
	"time"

	"delegate-portal/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderItemEvent struct {
	ItemCode string          `json:"item_code"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	IsPack   bool            `json:"is_pack"`
}

type OrderCreatedEvent struct {
	OrderID     uuid.UUID        `json:"order_id"`
	UserID      uuid.UUID        `json:"user_id"`
	Items       []OrderItemEvent `json:"items"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	CreatedAt   time.Time        `json:"created_at"`
}

type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID          `json:"order_id"`
	UserID    uuid.UUID          `json:"user_id"`
	From      models.OrderStatus `json:"from"`
	To        models.OrderStatus `json:"to"`
	Actor     string             `json:"actor"`
	ChangedAt time.Time          `json:"changed_at"`
}

type PaymentRecordedEvent struct {
	RecordID   uuid.UUID             `json:"record_id"`
	Gateway    models.PaymentGateway `json:"gateway"`
	Purpose    models.PaymentPurpose `json:"purpose"`
	OrderID    *uuid.UUID            `json:"order_id,omitempty"`
	UserID     *uuid.UUID            `json:"user_id,omitempty"`
	Amount     decimal.Decimal       `json:"amount"`
	Currency   string                `json:"currency"`
	StatusCode string                `json:"status_code"`
	RecordedAt time.Time             `json:"recorded_at"`
}

// EventBus publishes domain events after the owning transaction commits.
// A nil EventBus disables publishing.
type EventBus interface {
	PublishOrderCreated(ctx context.Context, e OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, e OrderStatusChangedEvent) error
	PublishPaymentRecorded(ctx context.Context, e PaymentRecordedEvent) error
}
