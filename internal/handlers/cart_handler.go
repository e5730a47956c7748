package handlers

import (
	"net/http"

	"delegate-portal/internal/cart"
	"delegate-portal/internal/dto"
	"delegate-portal/internal/metrics"
	"delegate-portal/internal/middleware"
	"delegate-portal/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CartHandler loads the caller's cart from the store on every request.
// Mutations go through cart.Mutate so concurrent requests of one caller do
// not overwrite each other.
type CartHandler struct {
	store  cart.Persister
	orders service.OrderService
	log    *zap.Logger
}

func NewCartHandler(store cart.Persister, orders service.OrderService, log *zap.Logger) *CartHandler {
	return &CartHandler{store: store, orders: orders, log: log}
}

func (h *CartHandler) load(c *gin.Context) (*cart.Cart, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("unauthorized"))
		return nil, false
	}
	ct, err := cart.Load(c.Request.Context(), uid.String(), h.store, h.log)
	if err != nil {
		writeError(c, h.log, err)
		return nil, false
	}
	return ct, true
}

// mutate applies fn to the caller's cart and writes the result as the
// response.
func (h *CartHandler) mutate(c *gin.Context, fn func(*cart.Cart) error) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("unauthorized"))
		return
	}
	ct, err := cart.Mutate(c.Request.Context(), uid.String(), h.store, h.log, fn)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCartResponse(ct))
}

func (h *CartHandler) Get(c *gin.Context) {
	ct, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.NewCartResponse(ct))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	line := req.Line()
	h.mutate(c, func(ct *cart.Cart) error {
		return ct.Add(c.Request.Context(), line)
	})
}

func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	var req dto.UpdateCartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	h.mutate(c, func(ct *cart.Cart) error {
		return ct.SetQuantity(c.Request.Context(), cart.Key(req.Key), req.Quantity)
	})
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("key is required", []dto.FieldError{{Field: "key", Message: "required", Tag: "required"}}))
		return
	}
	h.mutate(c, func(ct *cart.Cart) error {
		return ct.Remove(c.Request.Context(), cart.Key(key))
	})
}

func (h *CartHandler) Clear(c *gin.Context) {
	h.mutate(c, func(ct *cart.Cart) error {
		return ct.Clear(c.Request.Context())
	})
}

func (h *CartHandler) Checkout(c *gin.Context) {
	ct, ok := h.load(c)
	if !ok {
		return
	}
	ord, err := h.orders.Checkout(c.Request.Context(), ct)
	metrics.RecordOrderOperation("checkout", err == nil)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, ord)
}
