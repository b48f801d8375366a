// Package cache 公告列表的 redis 读穿缓存
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/contest-communication/internal/model"
	"github.com/d60-Lab/contest-communication/pkg/logger"
)

const (
	announcementsKey = "communication:announcements"
	// generationKey 每次失效自增；写回缓存前比对，丢弃失效之前读到的旧列表
	generationKey = "communication:announcements:gen"
)

var errStale = errors.New("announcement generation changed")

// AnnouncementCache stores the whole announcement list under one key. Redis
// failures degrade to a miss; they never fail the read.
type AnnouncementCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAnnouncementCache(client *redis.Client, ttl time.Duration) *AnnouncementCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &AnnouncementCache{client: client, ttl: ttl}
}

// Get returns the cached list on a hit. On a miss it returns the generation
// observed together with the miss; a negative generation means Set must not
// store anything.
func (c *AnnouncementCache) Get(ctx context.Context) ([]model.Announcement, int64, bool) {
	vals, err := c.client.MGet(ctx, announcementsKey, generationKey).Result()
	if err != nil {
		logger.Warn("announcement cache get failed", zap.Error(err))
		return nil, -1, false
	}
	gen, err := parseGeneration(vals[1])
	if err != nil {
		logger.Warn("announcement cache generation corrupt", zap.Error(err))
		return nil, -1, false
	}
	data, ok := vals[0].(string)
	if !ok {
		return nil, gen, false
	}
	var out []model.Announcement
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		logger.Warn("announcement cache payload corrupt", zap.Error(err))
		return nil, gen, false
	}
	return out, gen, true
}

func parseGeneration(v interface{}) (int64, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// Set stores list only while the generation still equals gen, so a list read
// before a concurrent Invalidate is dropped instead of cached.
func (c *AnnouncementCache) Set(ctx context.Context, gen int64, list []model.Announcement) {
	if gen < 0 {
		return
	}
	if list == nil {
		list = []model.Announcement{}
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, generationKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		cur, err := parseGeneration(raw)
		if err != nil {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, announcementsKey, payload, c.ttl)
			return nil
		})
		return err
	}, generationKey)
	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		logger.Debug("announcement cache set skipped: invalidated meanwhile", zap.Int64("gen", gen))
	default:
		logger.Warn("announcement cache set failed", zap.Error(err))
	}
}

// Invalidate 自增 generation 并删除列表，二者在同一个事务中
func (c *AnnouncementCache) Invalidate(ctx context.Context) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, announcementsKey)
		return nil
	})
	if err != nil {
		logger.Warn("announcement cache invalidate failed", zap.Error(err))
	}
}
