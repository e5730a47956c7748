package producer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"delegate-portal/internal/service"

	amqp "github.com/rabbitmq/amqp091-go"
)

var _ service.EventBus = (*RabbitEventBus)(nil)

// RabbitEventBus publishes to a durable topic exchange with the event type as
// routing key.
type RabbitEventBus struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
}

func NewRabbitEventBus(url, exchange string) (*RabbitEventBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &RabbitEventBus{conn: conn, channel: ch, exchange: exchange}, nil
}

func (r *RabbitEventBus) PublishOrderCreated(ctx context.Context, e service.OrderCreatedEvent) error {
	msg, err := orderCreated(e)
	if err != nil {
		return err
	}
	return r.publish(ctx, msg)
}

func (r *RabbitEventBus) PublishOrderStatusChanged(ctx context.Context, e service.OrderStatusChangedEvent) error {
	msg, err := statusChanged(e)
	if err != nil {
		return err
	}
	return r.publish(ctx, msg)
}

func (r *RabbitEventBus) PublishPaymentRecorded(ctx context.Context, e service.PaymentRecordedEvent) error {
	msg, err := paymentRecorded(e)
	if err != nil {
		return err
	}
	return r.publish(ctx, msg)
}

func (r *RabbitEventBus) publish(ctx context.Context, msg message) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel.PublishWithContext(ctx,
		r.exchange,
		msg.eventType,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			ContentType:  "application/json",
			MessageId:    msg.key,
			Body:         msg.body,
		},
	)
}

func (r *RabbitEventBus) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return err
		}
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
