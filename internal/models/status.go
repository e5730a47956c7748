package models

type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusConfirmed        OrderStatus = "confirmed"
	OrderStatusPaymentPending   OrderStatus = "payment pending"
	OrderStatusPaid             OrderStatus = "paid"
	OrderStatusPaymentFailed    OrderStatus = "payment failed"
	OrderStatusPaymentCancelled OrderStatus = "payment cancelled"
	OrderStatusChargedBack      OrderStatus = "charged back"
	OrderStatusFailed           OrderStatus = "failed"
	OrderStatusPaidWithCredit   OrderStatus = "paid with credit"
	OrderStatusProcessing       OrderStatus = "processing"
	OrderStatusShipped          OrderStatus = "shipped"
	OrderStatusDelivered        OrderStatus = "delivered"
	OrderStatusCancelled        OrderStatus = "cancelled"
)

// AllOrderStatuses lists every status in lifecycle order. The migration check
// constraint is generated from it.
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPaymentPending,
	OrderStatusPaid,
	OrderStatusPaymentFailed,
	OrderStatusPaymentCancelled,
	OrderStatusChargedBack,
	OrderStatusFailed,
	OrderStatusPaidWithCredit,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range AllOrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}
