package cart_test

import (
	"context"
	"testing"

	"delegate-portal/internal/cart"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := cart.NewFileStore(t.TempDir())
	require.NoError(t, err)

	raw, err := store.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, raw)

	c := cart.New("user/../1", store, zap.NewNop())
	require.NoError(t, c.Add(ctx, tee("M", 1)))
	require.NoError(t, c.Add(ctx, kit("Black", true)))

	reloaded, err := cart.Load(ctx, "user/../1", store, zap.NewNop())
	require.NoError(t, err)
	assertSameLines(t, c.Lines(), reloaded.Lines())
}

func TestNopStore_ForgetsEverything(t *testing.T) {
	ctx := context.Background()
	c := cart.New("user-1", cart.NopStore{}, zap.NewNop())
	require.NoError(t, c.Add(ctx, tee("M", 1)))

	reloaded, err := cart.Load(ctx, "user-1", cart.NopStore{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Len())
}
