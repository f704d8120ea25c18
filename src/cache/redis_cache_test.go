package cache

import (
	"context"
	"io"
	"testing"
	"time"

	"stock-forecast/src/logger"
	"stock-forecast/src/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisHistoryCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := NewRedisHistoryCache(context.Background(), models.MCacheConfig{
		Enabled:    true,
		RedisAddr:  srv.Addr(),
		TTLSeconds: 30,
	}, logger.NewLoggerWithOutput("ERROR", "cache-test", io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

var sel = models.MSelection{Symbol: "AAPL", Period: models.PeriodOneMonth}

func TestCache_MissThenHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, sel)
	assert.False(t, ok)

	points := []models.MHistoricalPoint{{Date: "2024-01-02 00:00:00-05:00", Price: 185.5}}
	require.NoError(t, c.Set(ctx, sel, points))

	got, ok := c.Get(ctx, sel)
	require.True(t, ok)
	assert.Equal(t, points, got)
	assert.Equal(t, CacheStats{Hits: 1, Misses: 1}, c.Stats())
}

func TestCache_KeysAreScopedBySelection(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, sel, []models.MHistoricalPoint{{Date: "d", Price: 1}}))

	_, ok := c.Get(ctx, models.MSelection{Symbol: "AAPL", Period: models.PeriodSixMonths})
	assert.False(t, ok)
	assert.True(t, srv.Exists("forecast:history:AAPL:1mo"))
}

func TestCache_Expires(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, sel, []models.MHistoricalPoint{{Date: "d", Price: 1}}))
	srv.FastForward(31 * time.Second)

	_, ok := c.Get(ctx, sel)
	assert.False(t, ok)
}

func TestCache_CorruptEntryIsDropped(t *testing.T) {
	c, srv := newTestCache(t)
	require.NoError(t, srv.Set("forecast:history:AAPL:1mo", "not-json"))

	_, ok := c.Get(context.Background(), sel)
	assert.False(t, ok)
	assert.False(t, srv.Exists("forecast:history:AAPL:1mo"))
}

func TestNewRedisHistoryCache_Unreachable(t *testing.T) {
	_, err := NewRedisHistoryCache(context.Background(), models.MCacheConfig{RedisAddr: "127.0.0.1:1"},
		logger.NewLoggerWithOutput("ERROR", "cache-test", io.Discard))
	assert.Error(t, err)
}
