package handlers

import (
	"net/http"

	"delegate-portal/internal/dto"
	"delegate-portal/internal/metrics"
	"delegate-portal/internal/models"
	"delegate-portal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminHandler struct {
	orders service.OrderService
	wallet service.WalletService
	log    *zap.Logger
}

func NewAdminHandler(orders service.OrderService, wallet service.WalletService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{orders: orders, wallet: wallet, log: log}
}

func (h *AdminHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}

	ord, err := h.orders.UpdateStatus(c.Request.Context(), id, models.OrderStatus(req.Status), req.Force)
	metrics.RecordOrderOperation("update_status", err == nil)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ord)
}

func (h *AdminHandler) TopUp(c *gin.Context) {
	var req dto.TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		bindError(c, h.log, err)
		return
	}

	credit, err := h.wallet.TopUp(c.Request.Context(), service.TopUpInput{
		UserID: userID,
		Amount: req.Amount,
		Reason: req.Reason,
	})
	metrics.RecordWalletOperation("top_up", err == nil)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{Credit: credit})
}

func (h *AdminHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}

	fromID, err := uuid.Parse(req.FromID)
	if err != nil {
		bindError(c, h.log, err)
		return
	}
	toID, err := uuid.Parse(req.ToID)
	if err != nil {
		bindError(c, h.log, err)
		return
	}

	err = h.wallet.Transfer(c.Request.Context(), service.TransferInput{
		FromID: fromID,
		ToID:   toID,
		Amount: req.Amount,
		Reason: req.Reason,
	})
	metrics.RecordWalletOperation("transfer", err == nil)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
