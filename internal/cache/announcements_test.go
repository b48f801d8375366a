package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/contest-communication/internal/model"
)

func newCache(t *testing.T) (*AnnouncementCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAnnouncementCache(client, time.Minute), mr
}

func TestAnnouncementCacheRoundTrip(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	_, gen, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, int64(0), gen)

	list := []model.Announcement{{ID: 1, Severity: "info", Title: "t", Content: "c", Date: "2024-01-01 00:00:00"}}
	c.Set(ctx, gen, list)
	got, _, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, list, got)
	assert.Equal(t, time.Minute, mr.TTL(announcementsKey))

	c.Invalidate(ctx)
	_, gen, ok = c.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, int64(1), gen)
}

func TestAnnouncementCacheDropsListReadBeforeInvalidate(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	_, gen, ok := c.Get(ctx)
	require.False(t, ok)

	// 读者拿着旧 generation 查库期间，写者插入并失效
	c.Invalidate(ctx)
	c.Set(ctx, gen, []model.Announcement{{ID: 1}})

	_, _, ok = c.Get(ctx)
	assert.False(t, ok)
	assert.False(t, mr.Exists(announcementsKey))

	// 新 generation 下的写回照常生效
	_, gen, _ = c.Get(ctx)
	c.Set(ctx, gen, []model.Announcement{{ID: 1}, {ID: 2}})
	got, _, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestAnnouncementCacheSetSkipsUnknownGeneration(t *testing.T) {
	c, mr := newCache(t)
	c.Set(context.Background(), -1, []model.Announcement{{ID: 1}})
	assert.False(t, mr.Exists(announcementsKey))
}

func TestAnnouncementCacheEmptyListIsAHit(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	c.Set(ctx, 0, nil)
	got, _, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestAnnouncementCacheExpires(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	c.Set(ctx, 0, []model.Announcement{{ID: 1}})
	mr.FastForward(2 * time.Minute)
	_, _, ok := c.Get(ctx)
	assert.False(t, ok)
}

func TestAnnouncementCacheDegradesOnRedisFailure(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	c.Set(ctx, 0, []model.Announcement{{ID: 1}})
	mr.Close()
	_, gen, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, int64(-1), gen)
	c.Set(ctx, 0, []model.Announcement{{ID: 2}})
	c.Invalidate(ctx)
}

func TestAnnouncementCacheCorruptPayload(t *testing.T) {
	c, mr := newCache(t)
	require.NoError(t, mr.Set(announcementsKey, "{not json"))
	_, gen, ok := c.Get(context.Background())
	assert.False(t, ok)
	assert.Equal(t, int64(0), gen)
}
