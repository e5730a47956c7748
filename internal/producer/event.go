package producer

import (
	"encoding/json"
	"time"

	"delegate-portal/internal/service"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventPaymentRecorded    = "payment.recorded"
)

// Envelope is the wire format shared by every broker.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type message struct {
	eventType string
	key       string
	body      []byte
}

func encode(eventType, key string, at time.Time, payload any) (message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return message{}, err
	}
	body, err := json.Marshal(Envelope{Type: eventType, OccurredAt: at.UTC(), Payload: raw})
	if err != nil {
		return message{}, err
	}
	return message{eventType: eventType, key: key, body: body}, nil
}

func orderCreated(e service.OrderCreatedEvent) (message, error) {
	return encode(EventOrderCreated, e.OrderID.String(), e.CreatedAt, e)
}

func statusChanged(e service.OrderStatusChangedEvent) (message, error) {
	return encode(EventOrderStatusChanged, e.OrderID.String(), e.ChangedAt, e)
}

// payment records are keyed by order when there is one, so they stay ordered
// with the status changes they caused.
func paymentRecorded(e service.PaymentRecordedEvent) (message, error) {
	key := e.RecordID.String()
	if e.OrderID != nil {
		key = e.OrderID.String()
	}
	return encode(EventPaymentRecorded, key, e.RecordedAt, e)
}
