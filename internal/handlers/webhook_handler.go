package handlers

import (
	"errors"
	"net/http"

	"delegate-portal/internal/metrics"
	"delegate-portal/internal/models"
	"delegate-portal/internal/payment"
	"delegate-portal/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler receives form-encoded gateway notifications. Gateways retry
// on anything but 2xx, so only requests that can never succeed get an error
// status.
type WebhookHandler struct {
	payments service.PaymentService
	log      *zap.Logger
}

func NewWebhookHandler(payments service.PaymentService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{payments: payments, log: log}
}

func (h *WebhookHandler) PayHere(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		bindError(c, h.log, err)
		return
	}
	n := payment.PayHereNotification{
		MerchantID:    c.PostForm("merchant_id"),
		OrderID:       c.PostForm("order_id"),
		PaymentID:     c.PostForm("payment_id"),
		Amount:        c.PostForm("payhere_amount"),
		Currency:      c.PostForm("payhere_currency"),
		StatusCode:    c.PostForm("status_code"),
		MD5Sig:        c.PostForm("md5sig"),
		Method:        c.PostForm("method"),
		StatusMessage: c.PostForm("status_message"),
		Custom1:       c.PostForm("custom_1"),
		Custom2:       c.PostForm("custom_2"),
	}

	_, err := h.payments.HandlePayHere(c.Request.Context(), n)
	h.respond(c, models.GatewayPayHere, err)
}

func (h *WebhookHandler) CyberSource(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		bindError(c, h.log, err)
		return
	}
	fields := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}

	_, err := h.payments.HandleCyberSource(c.Request.Context(), fields)
	h.respond(c, models.GatewayCyberSource, err)
}

func (h *WebhookHandler) respond(c *gin.Context, gw models.PaymentGateway, err error) {
	switch {
	case err == nil:
		metrics.RecordWebhook(string(gw), "accepted")
		c.String(http.StatusOK, "OK")
		return
	case errors.Is(err, service.ErrSignatureMismatch):
		metrics.RecordWebhook(string(gw), "rejected")
	default:
		metrics.RecordWebhook(string(gw), "error")
	}
	writeError(c, h.log, err)
}
