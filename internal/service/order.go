package service

import (
	"context"

	"delegate-portal/internal/cart"
	"delegate-portal/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CheckoutPackItem struct {
	ItemCode string
	Quantity int
	Size     string
	Color    string
	ColorHex string
	Name     string
	Image    string
}

// CheckoutLine is one submitted line. For packs ItemCode is the pack code and
// PackItems lists the constituents chosen for it.
type CheckoutLine struct {
	ItemCode  string
	Quantity  int
	Price     decimal.Decimal
	Size      string
	Color     string
	ColorHex  string
	Name      string
	Image     string
	IsPack    bool
	PackItems []CheckoutPackItem
}

type CreateOrderInput struct {
	Items       []CheckoutLine
	TotalAmount decimal.Decimal
}

type ListFilter struct {
	UserID *uuid.UUID
	Status *models.OrderStatus
	Limit  int
	Offset int
}

type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error)
	// Checkout places an order from the cart contents and empties the cart.
	Checkout(ctx context.Context, c *cart.Cart) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error)
	// UpdateStatus is the staff path. force skips the state graph.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, force bool) (*models.Order, error)
}

// CheckoutInput converts cart lines into a checkout submission. Bundles
// expand to their mandatory constituents plus the selected optional one.
func CheckoutInput(lines []cart.Line, total decimal.Decimal) CreateOrderInput {
	in := CreateOrderInput{Items: make([]CheckoutLine, 0, len(lines)), TotalAmount: total}
	for _, l := range lines {
		switch l.Kind {
		case cart.KindSimple:
			s := l.Simple
			name, hex := colorParts(s.Color)
			in.Items = append(in.Items, CheckoutLine{
				ItemCode: s.ItemCode,
				Quantity: s.Quantity,
				Price:    s.UnitPrice,
				Size:     s.Size,
				Color:    name,
				ColorHex: hex,
				Name:     s.Name,
				Image:    s.Image,
			})
		case cart.KindBundle:
			b := l.Bundle
			line := CheckoutLine{
				ItemCode: b.PackCode,
				Quantity: b.Quantity,
				Price:    b.UnitPrice,
				Name:     b.Name,
				Image:    b.Image,
				IsPack:   true,
			}
			for _, d := range b.Constituents() {
				name, hex := colorParts(d.Color)
				line.PackItems = append(line.PackItems, CheckoutPackItem{
					ItemCode: d.ItemCode,
					Quantity: d.Quantity,
					Size:     d.Size,
					Color:    name,
					ColorHex: hex,
					Name:     d.Name,
					Image:    d.Image,
				})
			}
			in.Items = append(in.Items, line)
		}
	}
	return in
}

func colorParts(c *cart.Color) (string, string) {
	if c == nil {
		return "", ""
	}
	return c.Name, c.Hex
}
