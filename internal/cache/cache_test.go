package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetAndGet(t *testing.T) {
	c := New[string](10, time.Minute)

	c.Set("a", "one")
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "one", got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New[int](10, 20*time.Millisecond)

	c.Set("a", 1)
	_, ok := c.Get("a")
	assert.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestSetRefreshesExpiry(t *testing.T) {
	c := New[int](10, 40*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(25 * time.Millisecond)
	c.Set("a", 2)
	time.Sleep(25 * time.Millisecond)

	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestLRUEviction(t *testing.T) {
	c := New[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestClear(t *testing.T) {
	c := New[int](10, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	assert.Equal(t, 0, c.Size())
	_, ok := c.Get("a")
	assert.False(t, ok)
}
