package consumer

import (
	"context"
	"testing"

	"delegate-portal/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockUserSyncer struct {
	SyncFunc func(ctx context.Context, id service.Identity) error
}

func (m *MockUserSyncer) Sync(ctx context.Context, id service.Identity) error {
	return m.SyncFunc(ctx, id)
}

func TestHandle(t *testing.T) {
	var got []service.Identity
	c := &KafkaUserConsumer{
		users: &MockUserSyncer{SyncFunc: func(_ context.Context, id service.Identity) error {
			got = append(got, id)
			return nil
		}},
		log: zap.NewNop(),
	}
	uid := uuid.New()

	require.NoError(t, c.handle(context.Background(), []byte(`{"user_id":"`+uid.String()+`","email":"dee@example.org","name":"Dee"}`)))
	require.Len(t, got, 1)
	assert.Equal(t, service.Identity{UserID: uid, Email: "dee@example.org", FullName: "Dee"}, got[0])

	assert.ErrorIs(t, c.handle(context.Background(), []byte(`not json`)), ErrBadMessage)
	assert.ErrorIs(t, c.handle(context.Background(), []byte(`{"user_id":"nope","email":"x@example.org"}`)), ErrBadMessage)
	assert.Len(t, got, 1)
}

func TestHandle_PassesSyncErrors(t *testing.T) {
	c := &KafkaUserConsumer{
		users: &MockUserSyncer{SyncFunc: func(context.Context, service.Identity) error {
			return service.ErrInvalidIdentity
		}},
		log: zap.NewNop(),
	}
	err := c.handle(context.Background(), []byte(`{"user_id":"`+uuid.NewString()+`"}`))
	assert.ErrorIs(t, err, service.ErrInvalidIdentity)
}
