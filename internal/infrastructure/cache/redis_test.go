package cache

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"skill-registry/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_UnavailableIsBypassed(t *testing.T) {
	r := NewRedis(config.RedisConfig{Host: "127.0.0.1", Port: "1"}, nil)
	ctx := context.Background()

	assert.False(t, r.Available())
	assert.ErrorIs(t, r.Ping(ctx), ErrUnavailable)

	var out map[string]string
	hit, err := r.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, r.SetJSON(ctx, "k", map[string]string{"a": "b"}, time.Second))
	require.NoError(t, r.Delete(ctx, "k"))

	ok, err := r.SetIfNotExists(ctx, "lock", "1", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := r.DeleteByPrefix(ctx, "github:")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, r.Close())
}

func TestRedis_NilReceiver(t *testing.T) {
	var r *Redis
	assert.False(t, r.Available())
	hit, err := r.GetJSON(context.Background(), "k", &struct{}{})
	assert.NoError(t, err)
	assert.False(t, hit)
}

// Runs against a real server when REDIS_TEST_ADDR is set, e.g. localhost:6379.
func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	r := NewRedis(config.RedisConfig{Host: host, Port: port, TTL: time.Minute}, nil)
	require.True(t, r.Available())
	defer r.Close()

	ctx := context.Background()
	prefix := "test:" + time.Now().Format("150405.000000") + ":"

	require.NoError(t, r.SetJSON(ctx, prefix+"a", []string{"x", "y"}, 0))
	var got []string
	hit, err := r.GetJSON(ctx, prefix+"a", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"x", "y"}, got)

	ok, err := r.SetIfNotExists(ctx, prefix+"lock", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.SetIfNotExists(ctx, prefix+"lock", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := r.DeleteByPrefix(ctx, prefix)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
