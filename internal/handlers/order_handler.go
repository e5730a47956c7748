package handlers

import (
	"net/http"
	"strconv"

	"delegate-portal/internal/dto"
	"delegate-portal/internal/metrics"
	"delegate-portal/internal/models"
	"delegate-portal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders service.OrderService
	wallet service.WalletService
	log    *zap.Logger
}

func NewOrderHandler(orders service.OrderService, wallet service.WalletService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, wallet: wallet, log: log}
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	ord, err := h.orders.CreateOrder(c.Request.Context(), req.Input())
	metrics.RecordOrderOperation("create", err == nil)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, ord)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ord, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ord)
}

func (h *OrderHandler) List(c *gin.Context) {
	f := service.ListFilter{
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}
	if s := c.Query("status"); s != "" {
		st := models.OrderStatus(s)
		f.Status = &st
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderListResponse{Orders: orders, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *OrderHandler) PayWithCredit(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ord, err := h.wallet.PayOrder(c.Request.Context(), id)
	metrics.RecordWalletOperation("pay_order", err == nil)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ord)
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid "+name, []dto.FieldError{{Field: name, Message: "must be a UUID", Tag: "uuid"}}))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
