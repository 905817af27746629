package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"warehouse-system/internal/logger"
)

const (
	CachePrefix   = "warehouse:"
	MaterialsKey  = "warehouse:materials"
	WarehousesKey = "warehouse:warehouses"
	SuppliersKey  = "warehouse:suppliers"
	DashboardKey  = "warehouse:dashboard"

	TTLShort  = 5 * time.Minute
	TTLMedium = 30 * time.Minute
)

// StockKeys are the entries that go stale whenever a material's stock moves.
var StockKeys = []string{MaterialsKey, DashboardKey}

// Store is a JSON cache over Redis. A Store without a client misses on every
// read and ignores writes, so Redis stays optional.
type Store struct {
	redis *redis.Client
}

func New(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) enabled() bool {
	return s != nil && s.redis != nil
}

// GetJSON reports whether key was found and decoded into dest.
func (s *Store) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if !s.enabled() {
		return false
	}
	raw, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn(ctx).Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logger.Warn(ctx).Err(err).Str("key", key).Msg("cache entry is corrupt")
		_ = s.redis.Del(ctx, key)
		return false
	}
	return true
}

func (s *Store) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.enabled() {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn(ctx).Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := s.redis.Set(ctx, key, raw, ttl).Err(); err != nil {
		logger.Warn(ctx).Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if !s.enabled() || len(keys) == 0 {
		return
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		logger.Warn(ctx).Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}
