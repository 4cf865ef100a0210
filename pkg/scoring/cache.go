package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bidfit-inc/bidfit-engine/pkg/models"
)

const cacheKeyPrefix = "score:"

// profileTagKey is the set of cache keys written for one profile, kept so
// a profile update can invalidate all of them in one call.
func profileTagKey(profileID string) string {
	return "score:profile:" + profileID
}

// Cache is a content-addressed score cache backed by Redis. The client
// may be nil (Redis not configured), in which case every operation
// degrades to a miss. In-flight computations for the same key are
// coalesced so concurrent identical requests cost one computation.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

var _ ScoreCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("score-cache"),
	}
}

// Get returns the cached result for key, or (nil, false) on a miss.
// Redis errors and corrupt entries degrade to a miss; scoring must keep
// working with the cache down.
func (c *Cache) Get(ctx context.Context, key string) (*models.ScoreResult, bool) {
	if c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var result models.ScoreResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("cache entry corrupt, treating as miss", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &result, true
}

// Set stores a result under key and tags it to the owning profile for
// bulk invalidation. Write failures are logged, not returned: a missed
// write only costs a recomputation later.
func (c *Cache) Set(ctx context.Context, key string, profileID string, result *models.ScoreResult) {
	if c.client == nil || result == nil {
		return
	}
	if ctx.Err() != nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, cacheKeyPrefix+key, data, c.ttl)
	pipe.SAdd(ctx, profileTagKey(profileID), cacheKeyPrefix+key)
	pipe.Expire(ctx, profileTagKey(profileID), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateProfile removes every cached score written for the profile.
// Used when a profile changes in ways the fingerprint may not cover, or
// on explicit operator request.
func (c *Cache) InvalidateProfile(ctx context.Context, profileID string) error {
	if c.client == nil {
		return nil
	}

	tag := profileTagKey(profileID)
	keys, err := c.client.SMembers(ctx, tag).Result()
	if err != nil {
		return fmt.Errorf("listing cached scores for profile %s: %w", profileID, err)
	}

	keys = append(keys, tag)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidating cached scores for profile %s: %w", profileID, err)
	}

	c.logger.Info("profile scores invalidated",
		zap.String("profile_id", profileID),
		zap.Int("entries", len(keys)-1))
	return nil
}

// Do runs fn at most once per key across concurrent callers. All callers
// for the same key receive the same result and error.
func (c *Cache) Do(key string, fn func() (*models.ScoreResult, error)) (*models.ScoreResult, error) {
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ScoreResult), nil
}
