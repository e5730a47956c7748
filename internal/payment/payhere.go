package payment

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"delegate-portal/internal/models"
)

// DelegateFeeMarker prefixes custom_1 on notifications for the flat delegate
// registration fee: "delegate_fee|<email>".
const DelegateFeeMarker = "delegate_fee"

const (
	PayHereSuccess    = "2"
	PayHerePending    = "0"
	PayHereCancelled  = "-1"
	PayHereFailed     = "-2"
	PayHereChargeback = "-3"
)

type PayHereNotification struct {
	MerchantID    string
	OrderID       string
	PaymentID     string
	Amount        string
	Currency      string
	StatusCode    string
	MD5Sig        string
	Method        string
	StatusMessage string
	Custom1       string
	Custom2       string
}

// Fields returns the notification as submitted, for audit storage.
func (n PayHereNotification) Fields() map[string]string {
	return map[string]string{
		"merchant_id":      n.MerchantID,
		"order_id":         n.OrderID,
		"payment_id":       n.PaymentID,
		"payhere_amount":   n.Amount,
		"payhere_currency": n.Currency,
		"status_code":      n.StatusCode,
		"md5sig":           n.MD5Sig,
		"method":           n.Method,
		"status_message":   n.StatusMessage,
		"custom_1":         n.Custom1,
		"custom_2":         n.Custom2,
	}
}

type PayHere struct {
	merchantID string
	secret     string
}

func NewPayHere(merchantID, secret string) *PayHere {
	return &PayHere{merchantID: merchantID, secret: secret}
}

// PayHereSignature computes
// upper(md5(merchant_id + order_id + amount + currency + status_code + upper(md5(secret)))).
func PayHereSignature(merchantID, orderID, amount, currency, statusCode, secret string) string {
	hashedSecret := upperMD5(secret)
	return upperMD5(merchantID + orderID + amount + currency + statusCode + hashedSecret)
}

func (p *PayHere) Verify(n PayHereNotification) error {
	for name, v := range map[string]string{
		"merchant_id": n.MerchantID,
		"order_id":    n.OrderID,
		"status_code": n.StatusCode,
		"md5sig":      n.MD5Sig,
	} {
		if v == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}
	if p.merchantID != "" && n.MerchantID != p.merchantID {
		return ErrSignatureMismatch
	}

	local := PayHereSignature(n.MerchantID, n.OrderID, n.Amount, n.Currency, n.StatusCode, p.secret)
	if subtle.ConstantTimeCompare([]byte(local), []byte(strings.ToUpper(n.MD5Sig))) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

// MapPayHereStatus never fails: unknown codes map to failed.
func MapPayHereStatus(code string) models.OrderStatus {
	switch strings.TrimSpace(code) {
	case PayHereSuccess:
		return models.OrderStatusPaid
	case PayHerePending:
		return models.OrderStatusPaymentPending
	case PayHereCancelled:
		return models.OrderStatusPaymentCancelled
	case PayHereFailed:
		return models.OrderStatusPaymentFailed
	case PayHereChargeback:
		return models.OrderStatusChargedBack
	default:
		return models.OrderStatusFailed
	}
}

// DelegateFeeEmail extracts the payer email when custom_1 carries the
// delegate-fee marker.
func DelegateFeeEmail(custom1 string) (string, bool) {
	marker, email, ok := strings.Cut(custom1, "|")
	if !ok || marker != DelegateFeeMarker {
		return "", false
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return "", false
	}
	return email, true
}

func upperMD5(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
