package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c, err := New(Config{Driver: "memory", Prefix: "sess"})
	require.NoError(t, err)

	_, err = c.Get(ctx, "a")
	require.True(t, IsNotFound(err))

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	v, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "1", v)

	require.NoError(t, c.Delete(ctx, "a"))
	require.NoError(t, c.Delete(ctx, "a"))
	_, err = c.Get(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, c.Ping(ctx))
}

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")
	require.NoError(t, c.Set(ctx, "k", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{Driver: "redis"})
	require.Error(t, err)
	_, err = New(Config{Driver: "memcached"})
	require.Error(t, err)
}

func TestPrefixed(t *testing.T) {
	require.Equal(t, "k", prefixed("", "k"))
	require.Equal(t, "p:k", prefixed("p", "k"))
}
