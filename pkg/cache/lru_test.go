package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entitledhq/entitled/pkg/cache"
)

func TestLRUCache_PutGet(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCache[string, int](2)

	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	old, existed := c.Put("a", 10)
	assert.True(t, existed)
	assert.Equal(t, 1, old)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCache[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // refresh "a", making "b" the eviction candidate
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)

	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRUCache_Remove(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCache[string, int](4)
	c.Put("a", 1)

	v, ok := c.Remove("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("a")
	assert.False(t, ok)

	_, ok = c.Remove("missing")
	assert.False(t, ok)
}
