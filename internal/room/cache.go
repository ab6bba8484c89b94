package room

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/escape-room-booking/internal/metrics"
)

const cacheKeyPrefix = "room:"

// CachedRepository is a read-through Redis cache in front of a Repository.
// Single-room reads are cached; every write invalidates the written room.
// Cache failures are logged and fall back to the wrapped repository.
type CachedRepository struct {
	Repository
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedRepository wraps repo. A nil client or non-positive ttl disables caching.
func NewCachedRepository(repo Repository, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedRepository {
	return &CachedRepository{
		Repository: repo,
		redis:      client,
		ttl:        ttl,
		logger:     logger,
	}
}

func (c *CachedRepository) GetByID(ctx context.Context, id string) (*Room, error) {
	var cached Room
	if c.readCache(ctx, cacheKeyPrefix+id, &cached) {
		metrics.IncRoomCache("hit")
		return &cached, nil
	}
	metrics.IncRoomCache("miss")

	rm, err := c.Repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKeyPrefix+id, rm)
	return rm, nil
}

func (c *CachedRepository) Update(ctx context.Context, rm *Room) error {
	if err := c.Repository.Update(ctx, rm); err != nil {
		return err
	}
	c.invalidate(ctx, rm.ID)
	return nil
}

// Delete also evicts the rooms that linked to id, since their links change.
func (c *CachedRepository) Delete(ctx context.Context, id string) error {
	linking, err := c.Repository.ListLinking(ctx, id)
	if err != nil {
		return err
	}
	if err := c.Repository.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	for _, other := range linking {
		c.invalidate(ctx, other)
	}
	return nil
}

func (c *CachedRepository) enabled() bool {
	return c.redis != nil && c.ttl > 0
}

func (c *CachedRepository) readCache(ctx context.Context, key string, out any) bool {
	if !c.enabled() {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("room cache read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("room cache entry is corrupt")
		return false
	}
	return true
}

func (c *CachedRepository) writeCache(ctx context.Context, key string, val any) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("room cache write failed")
	}
}

func (c *CachedRepository) invalidate(ctx context.Context, id string) {
	if !c.enabled() {
		return
	}
	if err := c.redis.Del(ctx, cacheKeyPrefix+id).Err(); err != nil {
		c.logger.Warn().Err(err).Str("room_id", id).Msg("room cache invalidation failed")
	}
}
