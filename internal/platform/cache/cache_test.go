package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	_, ok, err := c.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set("k", []byte("v"), time.Minute))
	got, ok, err := c.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete("k"))
	_, ok, err = c.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c, err := Open(Config{})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	// Badger TTLs have one-second resolution.
	require.NoError(t, c.Set("short", []byte("v"), time.Second))
	assert.Eventually(t, func() bool {
		_, ok, err := c.Get("short")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestCache_OnDisk(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, c.Set("k", []byte("persisted"), 0))
	require.NoError(t, c.Close())

	c, err = Open(Config{Dir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	got, ok, err := c.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", string(got))
}

func TestCache_ServeStopsOnCancel(t *testing.T) {
	c, err := Open(Config{GCInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Serve(ctx), context.DeadlineExceeded)
}
