package handlers

import (
	"net/http"

	"delegate-portal/internal/dto"
	"delegate-portal/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WalletHandler struct {
	wallet service.WalletService
	log    *zap.Logger
}

func NewWalletHandler(wallet service.WalletService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{wallet: wallet, log: log}
}

func (h *WalletHandler) Balance(c *gin.Context) {
	credit, err := h.wallet.Balance(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{Credit: credit})
}

func (h *WalletHandler) Transactions(c *gin.Context) {
	txns, err := h.wallet.History(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.TransactionsResponse{Transactions: txns})
}
