package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"general-store/internal/config"
	"general-store/internal/core"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledWithoutAddress(t *testing.T) {
	c, err := New(config.RedisConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, c)

	snap, _, err := c.Get(context.Background(), "B1")
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestRedisLookupCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping Redis test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	c := NewRedisLookupCache(client, time.Minute, nil)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Invalidate(ctx, "B1"))

	miss, gen, err := c.Get(ctx, "B1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	want := &core.ProductSnapshot{
		ItemCode: "000001", ProductName: "Rice", CompanyName: "Acme",
		SaleRate: decimal.RequireFromString("7.50"), AvailableQty: 6,
	}
	require.NoError(t, c.Set(ctx, "B1", gen, want))

	got, _, err := c.Get(ctx, "B1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ItemCode, got.ItemCode)
	assert.True(t, want.SaleRate.Equal(got.SaleRate))
	assert.Equal(t, 6, got.AvailableQty)

	require.NoError(t, c.Invalidate(ctx, "B1"))
	gone, _, err := c.Get(ctx, "B1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestRedisLookupCache_StaleWriteSkipped(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping Redis test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	c := NewRedisLookupCache(client, time.Minute, nil)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Invalidate(ctx, "B2"))

	_, gen, err := c.Get(ctx, "B2")
	require.NoError(t, err)

	// A sale commits between the ledger read and the cache write.
	require.NoError(t, c.Invalidate(ctx, "B2"))
	require.NoError(t, c.Set(ctx, "B2", gen, &core.ProductSnapshot{ItemCode: "000002", AvailableQty: 1}))

	snap, next, err := c.Get(ctx, "B2")
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.Equal(t, gen+1, next)
}
