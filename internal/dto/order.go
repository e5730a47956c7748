package dto

import (
	"delegate-portal/internal/models"
	"delegate-portal/internal/service"

	"github.com/shopspring/decimal"
)

type PackItemRequest struct {
	ItemCode string `json:"item_code"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size,omitempty"`
	Color    string `json:"color,omitempty"`
	ColorHex string `json:"color_hex,omitempty"`
	Name     string `json:"name,omitempty"`
	Image    string `json:"image,omitempty"`
}

type CheckoutLineRequest struct {
	ItemCode  string            `json:"item_code"`
	Quantity  int               `json:"quantity"`
	Price     decimal.Decimal   `json:"price"`
	Size      string            `json:"size,omitempty"`
	Color     string            `json:"color,omitempty"`
	ColorHex  string            `json:"color_hex,omitempty"`
	Name      string            `json:"name,omitempty"`
	Image     string            `json:"image,omitempty"`
	IsPack    bool              `json:"is_pack"`
	PackItems []PackItemRequest `json:"pack_items,omitempty"`
}

type CreateOrderRequest struct {
	Items       []CheckoutLineRequest `json:"items"`
	TotalAmount decimal.Decimal       `json:"total_amount"`
}

func (r CreateOrderRequest) Input() service.CreateOrderInput {
	in := service.CreateOrderInput{
		Items:       make([]service.CheckoutLine, len(r.Items)),
		TotalAmount: r.TotalAmount,
	}
	for i, l := range r.Items {
		line := service.CheckoutLine{
			ItemCode: l.ItemCode,
			Quantity: l.Quantity,
			Price:    l.Price,
			Size:     l.Size,
			Color:    l.Color,
			ColorHex: l.ColorHex,
			Name:     l.Name,
			Image:    l.Image,
			IsPack:   l.IsPack,
		}
		for _, p := range l.PackItems {
			line.PackItems = append(line.PackItems, service.CheckoutPackItem{
				ItemCode: p.ItemCode,
				Quantity: p.Quantity,
				Size:     p.Size,
				Color:    p.Color,
				ColorHex: p.ColorHex,
				Name:     p.Name,
				Image:    p.Image,
			})
		}
		in.Items[i] = line
	}
	return in
}

type OrderListResponse struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Force  bool   `json:"force"`
}
