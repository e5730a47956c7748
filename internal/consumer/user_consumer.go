package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"delegate-portal/internal/service"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrBadMessage = errors.New("malformed user message")

// UserMessage is published by the auth service when an account is created
// or its profile changes.
type UserMessage struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type UserSyncer interface {
	Sync(ctx context.Context, id service.Identity) error
}

// KafkaUserConsumer keeps the users table filled for accounts that have not
// called the portal yet.
type KafkaUserConsumer struct {
	reader *kafka.Reader
	users  UserSyncer
	log    *zap.Logger
}

func NewKafkaUserConsumer(brokers []string, groupID, topic string, users UserSyncer, log *zap.Logger) *KafkaUserConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		MinBytes:          1,
		MaxBytes:          1e6,
		CommitInterval:    time.Second,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})
	return &KafkaUserConsumer{reader: r, users: users, log: log}
}

// Run blocks until ctx is cancelled or the reader is closed.
func (c *KafkaUserConsumer) Run(ctx context.Context) error {
	c.log.Info("user consumer started", zap.String("topic", c.reader.Config().Topic))
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			c.log.Error("read user message", zap.Error(err))
			continue
		}
		if err := c.handle(ctx, m.Value); err != nil {
			c.log.Error("user message not applied",
				zap.Int64("offset", m.Offset),
				zap.ByteString("value", m.Value),
				zap.Error(err),
			)
		}
	}
}

func (c *KafkaUserConsumer) handle(ctx context.Context, value []byte) error {
	var msg UserMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	id, err := uuid.Parse(msg.UserID)
	if err != nil {
		return fmt.Errorf("%w: user_id %q", ErrBadMessage, msg.UserID)
	}
	return c.users.Sync(ctx, service.Identity{UserID: id, Email: msg.Email, FullName: msg.Name})
}

func (c *KafkaUserConsumer) Close() error { return c.reader.Close() }
