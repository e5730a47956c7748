package dto

import (
	"delegate-portal/internal/models"

	"github.com/shopspring/decimal"
)

type BalanceResponse struct {
	Credit decimal.Decimal `json:"credit"`
}

type TransactionsResponse struct {
	Transactions []models.CreditTransaction `json:"transactions"`
}

type TopUpRequest struct {
	UserID string          `json:"user_id" binding:"required,uuid"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason,omitempty"`
}

type TransferRequest struct {
	FromID string          `json:"from_id" binding:"required,uuid"`
	ToID   string          `json:"to_id" binding:"required,uuid"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason,omitempty"`
}
