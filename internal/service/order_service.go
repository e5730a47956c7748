package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"delegate-portal/internal/cart"
	"delegate-portal/internal/models"
	"delegate-portal/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderOptions struct {
	// Reprice checks every submitted price and the total against the catalog.
	Reprice bool
}

type orderService struct {
	repo    *repository.Repository
	catalog CatalogProvider
	events  EventBus
	log     *zap.Logger
	opts    OrderOptions
	now     func() time.Time
}

func NewOrderService(repo *repository.Repository, catalog CatalogProvider, events EventBus, log *zap.Logger, opts OrderOptions) OrderService {
	return &orderService{
		repo:    repo,
		catalog: catalog,
		events:  events,
		log:     log,
		opts:    opts,
		now:     time.Now,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	userID, _, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateCheckout(in); err != nil {
		return nil, err
	}

	catalog, err := s.catalog.GetByCodes(ctx, referencedCodes(in.Items))
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}
	if s.opts.Reprice {
		if err := reprice(in, catalog); err != nil {
			return nil, err
		}
	}

	var (
		order *models.Order
		now   = s.now()
	)
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		header := &models.Order{
			UserID:           userID,
			Status:           models.OrderStatusPending,
			TotalAmount:      in.TotalAmount,
			UpdatedBy:        actorID(userID),
			LastStatusChange: now,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.Orders.Create(ctx, header); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		items := buildOrderItems(header.ID, in.Items, catalog, now)
		if err := tx.OrderItems.BulkCreate(ctx, items); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}

		full, err := tx.Orders.GetByID(ctx, header.ID)
		if err != nil {
			return err
		}
		if full == nil {
			return ErrOrderNotFound
		}
		order = full
		return nil
	})
	if err != nil {
		s.log.Error("order creation failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)

	if s.events != nil {
		evItems := make([]OrderItemEvent, 0, len(order.Items))
		for _, it := range order.Items {
			evItems = append(evItems, OrderItemEvent{ItemCode: it.ItemCode, Quantity: it.Quantity, Price: it.Price, IsPack: it.IsPack})
		}
		if err := s.events.PublishOrderCreated(ctx, OrderCreatedEvent{
			OrderID:     order.ID,
			UserID:      order.UserID,
			Items:       evItems,
			TotalAmount: order.TotalAmount,
			CreatedAt:   order.CreatedAt,
		}); err != nil {
			s.log.Warn("publish order created failed", zap.String("order_id", order.ID.String()), zap.Error(err))
		}
	}

	return order, nil
}

func (s *orderService) Checkout(ctx context.Context, c *cart.Cart) (*models.Order, error) {
	if c.Len() == 0 {
		return nil, ErrEmptyItems
	}
	order, err := s.CreateOrder(ctx, CheckoutInput(c.Lines(), c.Subtotal()))
	if err != nil {
		return nil, err
	}
	if err := c.Clear(ctx); err != nil {
		// order is committed; clear failure is not returned
		s.log.Warn("failed to clear cart after checkout", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	var ord *models.Order
	if role == RoleAdmin {
		ord, err = s.repo.Orders.GetByID(ctx, id)
	} else {
		ord, err = s.repo.Orders.GetByIDForUser(ctx, id, userID)
	}
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

func (s *orderService) ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error) {
	userID, role, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}
	if role != RoleAdmin {
		f.UserID = &userID
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}

	ordersPtr, total, err := s.repo.Orders.List(ctx, repository.OrderListFilter{
		UserID: f.UserID,
		Status: f.Status,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	orders := make([]models.Order, len(ordersPtr))
	for i, o := range ordersPtr {
		orders[i] = *o
	}
	return orders, total, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, force bool) (*models.Order, error) {
	adminID, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	ord, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}

	now := s.now()
	from, changed, err := applyStatus(ctx, s.repo.Orders, ord, status, TriggerAdmin, actorID(adminID), now, force)
	if err != nil {
		return nil, err
	}
	if !changed {
		return ord, nil
	}

	if force {
		s.log.Warn("order status forced",
			zap.String("order_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(status)),
			zap.String("admin_id", adminID.String()),
		)
	}
	publishStatusChanged(ctx, s.events, s.log, ord, from, now)

	return s.repo.Orders.GetByID(ctx, id)
}

// MaxLineQuantity bounds every line, constituent and expanded pack row.
const MaxLineQuantity = 10_000

func validateCheckout(in CreateOrderInput) error {
	if len(in.Items) == 0 {
		return ErrEmptyItems
	}
	if in.TotalAmount.IsNegative() {
		return ErrInvalidAmount
	}
	for i, l := range in.Items {
		if strings.TrimSpace(l.ItemCode) == "" {
			return fmt.Errorf("line %d: %w", i, ErrMissingItemCode)
		}
		if l.Quantity < 1 || l.Quantity > MaxLineQuantity {
			return fmt.Errorf("line %d: %w", i, ErrQuantityInvalid)
		}
		if l.Price.IsNegative() {
			return fmt.Errorf("line %d: %w", i, ErrInvalidAmount)
		}
		if l.IsPack != (len(l.PackItems) > 0) {
			return fmt.Errorf("line %d: %w", i, ErrInvalidLine)
		}
		for j, p := range l.PackItems {
			if strings.TrimSpace(p.ItemCode) == "" {
				return fmt.Errorf("line %d pack item %d: %w", i, j, ErrMissingItemCode)
			}
			if p.Quantity < 1 || p.Quantity > MaxLineQuantity/l.Quantity {
				return fmt.Errorf("line %d pack item %d: %w", i, j, ErrQuantityInvalid)
			}
		}
	}
	return nil
}

func referencedCodes(lines []CheckoutLine) []string {
	seen := make(map[string]struct{})
	var codes []string
	add := func(code string) {
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	for _, l := range lines {
		add(l.ItemCode)
		for _, p := range l.PackItems {
			add(p.ItemCode)
		}
	}
	return codes
}

func reprice(in CreateOrderInput, catalog map[string]models.CatalogItem) error {
	sum := decimal.Zero
	for i, l := range in.Items {
		entry, ok := catalog[l.ItemCode]
		if !ok {
			return fmt.Errorf("line %d %s: %w", i, l.ItemCode, ErrItemNotFound)
		}
		if !entry.Price.Equal(l.Price) {
			return fmt.Errorf("line %d %s: %w", i, l.ItemCode, ErrPriceMismatch)
		}
		sum = sum.Add(entry.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	if !sum.Equal(in.TotalAmount) {
		return fmt.Errorf("%w: expected %s, got %s", ErrTotalMismatch, sum.StringFixed(2), in.TotalAmount.StringFixed(2))
	}
	return nil
}

func buildOrderItems(orderID uuid.UUID, lines []CheckoutLine, catalog map[string]models.CatalogItem, now time.Time) []models.OrderItem {
	var rows []models.OrderItem
	for _, l := range lines {
		if !l.IsPack {
			name, image := snapshot(catalog, l.ItemCode, l.Name, l.Image)
			rows = append(rows, models.OrderItem{
				OrderID:   orderID,
				ItemCode:  l.ItemCode,
				Quantity:  l.Quantity,
				Price:     l.Price,
				Size:      optString(l.Size),
				Color:     optString(l.Color),
				ColorHex:  optString(l.ColorHex),
				Name:      name,
				Image:     image,
				Position:  len(rows),
				CreatedAt: now,
			})
			continue
		}

		packCode := l.ItemCode
		for _, p := range l.PackItems {
			name, image := snapshot(catalog, p.ItemCode, p.Name, p.Image)
			rows = append(rows, models.OrderItem{
				OrderID:   orderID,
				ItemCode:  p.ItemCode,
				Quantity:  p.Quantity * l.Quantity,
				Price:     decimal.Zero,
				Size:      optString(p.Size),
				Color:     optString(p.Color),
				ColorHex:  optString(p.ColorHex),
				Name:      name,
				Image:     image,
				IsPack:    true,
				PackCode:  &packCode,
				Position:  len(rows),
				CreatedAt: now,
			})
		}
	}
	return rows
}

// snapshot prefers the catalog's current name and image, falling back to what
// the client sent and finally to the item code.
func snapshot(catalog map[string]models.CatalogItem, code, name, image string) (string, *string) {
	if entry, ok := catalog[code]; ok {
		img := entry.Image
		if img == nil {
			img = optString(image)
		}
		return entry.Name, img
	}
	if strings.TrimSpace(name) == "" {
		name = code
	}
	return name, optString(image)
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func publishStatusChanged(ctx context.Context, events EventBus, log *zap.Logger, ord *models.Order, from models.OrderStatus, at time.Time) {
	if events == nil {
		return
	}
	if err := events.PublishOrderStatusChanged(ctx, OrderStatusChangedEvent{
		OrderID:   ord.ID,
		UserID:    ord.UserID,
		From:      from,
		To:        ord.Status,
		Actor:     ord.UpdatedBy,
		ChangedAt: at,
	}); err != nil {
		log.Warn("publish status change failed", zap.String("order_id", ord.ID.String()), zap.Error(err))
	}
}
