package booking

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLedger(t *testing.T) *RedisLedger {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLedger(client)
}

func TestRedisLedgerRoundTrip(t *testing.T) {
	ledger := newTestRedisLedger(t)
	ctx := context.Background()

	_, ok, err := ledger.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.Put(ctx, "conv-1", "conf-42"))

	confirmed, ok, err := ledger.Get(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "conf-42", confirmed)
}

func TestRedisLedgerIsolatesConversations(t *testing.T) {
	ledger := newTestRedisLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Put(ctx, "conv-1", "conf-1"))
	require.NoError(t, ledger.Put(ctx, "conv-2", "conf-2"))

	confirmed, ok, err := ledger.Get(ctx, "conv-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "conf-2", confirmed)
}
