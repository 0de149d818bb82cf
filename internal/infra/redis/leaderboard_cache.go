package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"snippet-quiz-service/internal/app"
	"snippet-quiz-service/internal/domain"
	"snippet-quiz-service/internal/randx"
)

// LeaderboardCache decorates a ResultStore with a short-lived Redis cache.
// The full top block is cached per mode (key leaderboard:{mode}) and sliced
// to the requested limit, so every limit shares one cached value.
type LeaderboardCache struct {
	client *redis.Client
	inner  app.ResultStore
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *randx.LockedRand
}

func NewLeaderboardCache(client *redis.Client, inner app.ResultStore, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    randx.New(nil),
	}
}

func (c *LeaderboardCache) TopResults(ctx context.Context, mode domain.GameMode, limit int) ([]domain.GameResult, error) {
	key := c.key(mode)
	if entries, ok := c.fromCache(ctx, key); ok {
		return clip(entries, limit), nil
	}

	result, err, _ := c.sf.Do(string(mode), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if entries, ok := c.fromCache(ctx, key); ok {
			return entries, nil
		}

		entries, err := c.inner.TopResults(ctx, mode, app.MaxLeaderboardLimit)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(entries); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return clip(result.([]domain.GameResult), limit), nil
}

func (c *LeaderboardCache) fromCache(ctx context.Context, key string) ([]domain.GameResult, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var entries []domain.GameResult
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *LeaderboardCache) key(mode domain.GameMode) string {
	return "leaderboard:" + string(mode)
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.IntN(jitterMax+1))
}

func clip(entries []domain.GameResult, limit int) []domain.GameResult {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
