package router

import (
	"context"

	"delegate-portal/internal/cart"
	"delegate-portal/internal/models"
	"delegate-portal/internal/payment"
	"delegate-portal/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MockOrderService struct {
	CreateOrderFunc  func(ctx context.Context, in service.CreateOrderInput) (*models.Order, error)
	CheckoutFunc     func(ctx context.Context, c *cart.Cart) (*models.Order, error)
	GetOrderFunc     func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrdersFunc   func(ctx context.Context, f service.ListFilter) ([]models.Order, int64, error)
	UpdateStatusFunc func(ctx context.Context, id uuid.UUID, status models.OrderStatus, force bool) (*models.Order, error)
}

func (m *MockOrderService) CreateOrder(ctx context.Context, in service.CreateOrderInput) (*models.Order, error) {
	return m.CreateOrderFunc(ctx, in)
}

func (m *MockOrderService) Checkout(ctx context.Context, c *cart.Cart) (*models.Order, error) {
	return m.CheckoutFunc(ctx, c)
}

func (m *MockOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return m.GetOrderFunc(ctx, id)
}

func (m *MockOrderService) ListOrders(ctx context.Context, f service.ListFilter) ([]models.Order, int64, error) {
	return m.ListOrdersFunc(ctx, f)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, force bool) (*models.Order, error) {
	return m.UpdateStatusFunc(ctx, id, status, force)
}

type MockPaymentService struct {
	HandlePayHereFunc     func(ctx context.Context, n payment.PayHereNotification) (*service.PaymentOutcome, error)
	HandleCyberSourceFunc func(ctx context.Context, fields map[string]string) (*service.PaymentOutcome, error)
}

func (m *MockPaymentService) HandlePayHere(ctx context.Context, n payment.PayHereNotification) (*service.PaymentOutcome, error) {
	return m.HandlePayHereFunc(ctx, n)
}

func (m *MockPaymentService) HandleCyberSource(ctx context.Context, fields map[string]string) (*service.PaymentOutcome, error) {
	return m.HandleCyberSourceFunc(ctx, fields)
}

type MockWalletService struct {
	BalanceFunc  func(ctx context.Context) (decimal.Decimal, error)
	HistoryFunc  func(ctx context.Context, limit int) ([]models.CreditTransaction, error)
	PayOrderFunc func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	TopUpFunc    func(ctx context.Context, in service.TopUpInput) (decimal.Decimal, error)
	TransferFunc func(ctx context.Context, in service.TransferInput) error
}

func (m *MockWalletService) Balance(ctx context.Context) (decimal.Decimal, error) {
	return m.BalanceFunc(ctx)
}

func (m *MockWalletService) History(ctx context.Context, limit int) ([]models.CreditTransaction, error) {
	return m.HistoryFunc(ctx, limit)
}

func (m *MockWalletService) PayOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return m.PayOrderFunc(ctx, orderID)
}

func (m *MockWalletService) TopUp(ctx context.Context, in service.TopUpInput) (decimal.Decimal, error) {
	return m.TopUpFunc(ctx, in)
}

func (m *MockWalletService) Transfer(ctx context.Context, in service.TransferInput) error {
	return m.TransferFunc(ctx, in)
}

type MockUserService struct {
	SyncFunc func(ctx context.Context, id service.Identity) error
}

func (m *MockUserService) Sync(ctx context.Context, id service.Identity) error {
	return m.SyncFunc(ctx, id)
}
