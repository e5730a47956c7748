package producer

import (
	"context"
	"time"

	"delegate-portal/internal/service"

	"github.com/segmentio/kafka-go"
)

var _ service.EventBus = (*KafkaEventBus)(nil)

// KafkaEventBus writes each event type to <prefix><type>, keyed by order id.
type KafkaEventBus struct {
	writer      *kafka.Writer
	topicPrefix string
}

func NewKafkaEventBus(brokers []string, topicPrefix string) *KafkaEventBus {
	return &KafkaEventBus{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		topicPrefix: topicPrefix,
	}
}

func (p *KafkaEventBus) PublishOrderCreated(ctx context.Context, e service.OrderCreatedEvent) error {
	msg, err := orderCreated(e)
	if err != nil {
		return err
	}
	return p.write(ctx, msg)
}

func (p *KafkaEventBus) PublishOrderStatusChanged(ctx context.Context, e service.OrderStatusChangedEvent) error {
	msg, err := statusChanged(e)
	if err != nil {
		return err
	}
	return p.write(ctx, msg)
}

func (p *KafkaEventBus) PublishPaymentRecorded(ctx context.Context, e service.PaymentRecordedEvent) error {
	msg, err := paymentRecorded(e)
	if err != nil {
		return err
	}
	return p.write(ctx, msg)
}

func (p *KafkaEventBus) write(ctx context.Context, msg message) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topicPrefix + msg.eventType,
		Key:   []byte(msg.key),
		Value: msg.body,
	})
}

func (p *KafkaEventBus) Close() error {
	return p.writer.Close()
}
