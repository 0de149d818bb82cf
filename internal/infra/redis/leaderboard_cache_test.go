package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"snippet-quiz-service/internal/domain"
)

func TestLeaderboardCacheHitsRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := &countingStore{entries: []domain.GameResult{
		{PlayerName: "Alice", Score: 9, TotalQuestions: 10, TimeTaken: 30},
		{PlayerName: "Bob", Score: 8, TotalQuestions: 10, TimeTaken: 25},
	}}
	cache := NewLeaderboardCache(client, inner, time.Minute)

	entries, err := cache.TopResults(context.Background(), domain.ModeClassic, 5)
	if err != nil {
		t.Fatalf("top results: %v", err)
	}
	if len(entries) != 2 || inner.calls != 1 {
		t.Fatalf("expected 2 entries from one load, got %d entries, %d calls", len(entries), inner.calls)
	}

	// Second read should come from redis, loader not incremented.
	if _, err := cache.TopResults(context.Background(), domain.ModeClassic, 5); err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected cache hit, inner calls=%d", inner.calls)
	}

	// A smaller limit slices the same cached block.
	one, err := cache.TopResults(context.Background(), domain.ModeClassic, 1)
	if err != nil {
		t.Fatalf("sliced read: %v", err)
	}
	if len(one) != 1 || one[0].PlayerName != "Alice" || inner.calls != 1 {
		t.Fatalf("expected top entry from cache, got %+v (calls=%d)", one, inner.calls)
	}
}

func TestLeaderboardCacheExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := &countingStore{}
	cache := NewLeaderboardCache(client, inner, time.Second)

	if _, err := cache.TopResults(context.Background(), domain.ModeInfinite, 5); err != nil {
		t.Fatalf("top results: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if _, err := cache.TopResults(context.Background(), domain.ModeInfinite, 5); err != nil {
		t.Fatalf("top results after expiry: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected reload after expiry, calls=%d", inner.calls)
	}
}

type countingStore struct {
	entries []domain.GameResult
	calls   int
}

func (s *countingStore) TopResults(_ context.Context, _ domain.GameMode, limit int) ([]domain.GameResult, error) {
	s.calls++
	if len(s.entries) > limit {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}
