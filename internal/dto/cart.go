package dto

import (
	"delegate-portal/internal/cart"

	"github.com/shopspring/decimal"
)

// AddCartItemRequest is the tagged cart line: kind selects which of simple or
// bundle is read.
type AddCartItemRequest struct {
	Kind   string           `json:"kind" binding:"required,oneof=simple bundle"`
	Simple *cart.SimpleLine `json:"simple,omitempty"`
	Bundle *cart.BundleLine `json:"bundle,omitempty"`
}

func (r AddCartItemRequest) Line() cart.Line {
	return cart.Line{Kind: cart.Kind(r.Kind), Simple: r.Simple, Bundle: r.Bundle}
}

type UpdateCartQuantityRequest struct {
	Key      string `json:"key" binding:"required"`
	Quantity int    `json:"quantity"`
}

type CartLineResponse struct {
	Key string `json:"key"`
	cart.Line
}

type CartResponse struct {
	Lines      []CartLineResponse `json:"lines"`
	TotalItems int                `json:"total_items"`
	Subtotal   decimal.Decimal    `json:"subtotal"`
}

func NewCartResponse(c *cart.Cart) CartResponse {
	lines := c.Lines()
	out := CartResponse{
		Lines:      make([]CartLineResponse, len(lines)),
		TotalItems: c.TotalItems(),
		Subtotal:   c.Subtotal(),
	}
	for i, l := range lines {
		out.Lines[i] = CartLineResponse{Key: string(l.Key()), Line: l}
	}
	return out
}
