package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_Stable(t *testing.T) {
	a := Key("score", "gpt-4o-mini", `{"x":1}`)
	b := Key("score", "gpt-4o-mini", `{"x":1}`)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Key("score", "gpt-4o", `{"x":1}`))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	require.NoError(t, c.Set("k", []byte("v"), 0))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	require.NoError(t, c.Set("k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("score", "batch-1")

	require.NoError(t, c.Set(key, []byte("payload"), 0))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "payload", string(got))

	// Survives a fresh instance over the same directory
	got, ok = NewDiskCache(dir, time.Hour).Get(key)
	require.True(t, ok)
	assert.Equal(t, "payload", string(got))

	require.NoError(t, c.Delete(key))
	require.NoError(t, c.Delete(key), "deleting twice is fine")
	_, ok = c.Get(key)
	assert.False(t, ok)
}

func TestDiskCache_Expired(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	key := Key("x")
	require.NoError(t, c.Set(key, []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("corrupt")
	require.NoError(t, c.Set(key, []byte("v"), 0))

	path := c.path(key)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, ok := c.Get(key)
	assert.False(t, ok)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "corrupt entries are removed")
}

func TestDiskCache_Clear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewDiskCache(dir, time.Hour)
	require.NoError(t, c.Set(Key("a"), []byte("1"), 0))
	require.NoError(t, c.Clear())
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestLayeredCache_PromotesDurableHits(t *testing.T) {
	fast := NewMemoryCache(time.Minute, time.Minute)
	durable := NewDiskCache(t.TempDir(), time.Hour)
	c := NewLayeredCache(fast, durable)

	key := Key("layered")
	require.NoError(t, durable.Set(key, []byte("from-disk"), 0))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "from-disk", string(got))

	got, ok = fast.Get(key)
	require.True(t, ok, "hit promoted into the fast layer")
	assert.Equal(t, "from-disk", string(got))

	require.NoError(t, c.Delete(key))
	_, ok = c.Get(key)
	assert.False(t, ok)
}
