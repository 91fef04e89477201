package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	leaderboardKey = "leaderboard"
	leaderboardTTL = 5 * time.Minute
)

// Cache keeps the leaderboard projection in Redis with a short TTL,
// invalidated on every post mutation. All methods are safe on a nil client,
// which disables caching.
type Cache struct {
	client *redis.Client
	log    *logrus.Logger
}

func NewCache(client *redis.Client, log *logrus.Logger) *Cache {
	return &Cache{client: client, log: log}
}

func ConnectRedis(ctx context.Context, addr, password string, log *logrus.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.WithError(err).Error("Failed to connect to Redis")
		return nil, err
	}
	log.Info("Redis connected successfully")
	return client, nil
}

func (c *Cache) GetLeaderboard(ctx context.Context) ([]LeaderboardEntry, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, leaderboardKey).Result()
	if err != nil {
		return nil, false
	}
	var entries []LeaderboardEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *Cache) SetLeaderboard(ctx context.Context, entries []LeaderboardEntry) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, leaderboardKey, raw, leaderboardTTL).Err(); err != nil {
		c.log.WithError(err).Warn("Failed to cache leaderboard")
	}
}

func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, leaderboardKey).Err(); err != nil {
		c.log.WithError(err).Warn("Failed to invalidate leaderboard cache")
	}
}
