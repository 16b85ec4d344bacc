package navgraph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hostcp/internal/domain"
)

func TestCache_PutAndGet(t *testing.T) {
	c := NewCache()
	g := domain.NewUnifiedGraph("root")

	c.Put("root", "team1", g)
	got, ok := c.Get("root", "team1")
	assert.True(t, ok)
	assert.Same(t, g, got)
}

func TestCache_GetMissingKey(t *testing.T) {
	c := NewCache()
	_, ok := c.Get("root", "team1")
	assert.False(t, ok)
}

func TestCache_DifferentTeamsDoNotCollide(t *testing.T) {
	c := NewCache()
	gA := domain.NewUnifiedGraph("root")
	gB := domain.NewUnifiedGraph("root")

	c.Put("root", "team-a", gA)
	c.Put("root", "team-b", gB)

	got, ok := c.Get("root", "team-a")
	assert.True(t, ok)
	assert.Same(t, gA, got)

	got, ok = c.Get("root", "team-b")
	assert.True(t, ok)
	assert.Same(t, gB, got)
}

func TestCache_ExpiredEntryNotReturned(t *testing.T) {
	c := NewCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("root", "team1", domain.NewUnifiedGraph("root"))

	c.now = func() time.Time { return now.Add(DefaultTTL + time.Minute) }
	_, ok := c.Get("root", "team1")
	assert.False(t, ok)
}

func TestCache_Refresh(t *testing.T) {
	c := NewCache()
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Put("root", "team1", domain.NewUnifiedGraph("root"))

	refreshAt := now.Add(DefaultTTL - time.Minute)
	c.now = func() time.Time { return refreshAt }
	assert.True(t, c.Refresh("root", "team1"))

	c.now = func() time.Time { return refreshAt.Add(DefaultTTL - time.Minute) }
	_, ok := c.Get("root", "team1")
	assert.True(t, ok, "refresh should extend expiry by ttl from the refresh call time")
}

func TestCache_RefreshMissingKey(t *testing.T) {
	c := NewCache()
	assert.False(t, c.Refresh("root", "team1"))
}

func TestCache_Invalidate(t *testing.T) {
	c := NewCache()
	c.Put("root", "team1", domain.NewUnifiedGraph("root"))
	c.Invalidate("root", "team1")
	_, ok := c.Get("root", "team1")
	assert.False(t, ok)
}

func TestCache_Sweep(t *testing.T) {
	c := NewCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("expired", "team1", domain.NewUnifiedGraph("expired"))
	c.Put("fresh", "team1", domain.NewUnifiedGraph("fresh"))

	c.now = func() time.Time { return now.Add(DefaultTTL + time.Minute) }
	c.Refresh("fresh", "team1")

	dropped := c.Sweep()
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, c.Len())
}
