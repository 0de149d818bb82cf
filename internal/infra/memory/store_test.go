package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"snippet-quiz-service/internal/domain"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	session := domain.GameSession{
		ID:        "abc123",
		Mode:      domain.ModeClassic,
		Snippets:  []domain.Snippet{{Language: "Go", Code: "package main"}},
		CreatedAt: time.Now(),
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetSession(ctx, "abc123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Completed {
		t.Fatalf("new session should not be completed")
	}

	if _, err := store.GetSession(ctx, "missing"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestFinalizeSessionIsOneShot(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_ = store.CreateSession(ctx, domain.GameSession{ID: "s1", Mode: domain.ModeClassic})

	result := domain.GameResult{SessionID: "s1", PlayerName: "Alice", Score: 1, TotalQuestions: 1, Mode: domain.ModeClassic}
	id, err := store.FinalizeSession(ctx, "s1", result)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected result id")
	}

	if _, err := store.FinalizeSession(ctx, "s1", result); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound on resubmit, got %v", err)
	}

	entries, err := store.TopResults(ctx, domain.ModeClassic, 10)
	if err != nil {
		t.Fatalf("top results: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one stored result, got %d", len(entries))
	}
}

func TestFinalizeSessionConcurrentRace(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_ = store.CreateSession(ctx, domain.GameSession{ID: "s1", Mode: domain.ModeClassic})

	result := domain.GameResult{SessionID: "s1", Score: 2, TotalQuestions: 3, Mode: domain.ModeClassic}

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.FinalizeSession(ctx, "s1", result)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if err != domain.ErrSessionNotFound {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one finalize to win, got %d", succeeded)
	}
}

func TestTopResultsOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rows := []domain.GameResult{
		{PlayerName: "slow", Score: 8, TotalQuestions: 10, TimeTaken: 40, Mode: domain.ModeClassic, CreatedAt: base},
		{PlayerName: "fast", Score: 8, TotalQuestions: 10, TimeTaken: 35, Mode: domain.ModeClassic, CreatedAt: base.Add(time.Minute)},
		{PlayerName: "best", Score: 10, TotalQuestions: 10, TimeTaken: 60, Mode: domain.ModeClassic, CreatedAt: base.Add(2 * time.Minute)},
		{PlayerName: "empty", Score: 0, TotalQuestions: 0, TimeTaken: 1, Mode: domain.ModeClassic, CreatedAt: base},
		{PlayerName: "other-mode", Score: 9, TotalQuestions: 10, TimeTaken: 10, Mode: domain.ModeInfinite, CreatedAt: base},
	}
	for i, r := range rows {
		id := "s" + string(rune('0'+i))
		_ = store.CreateSession(ctx, domain.GameSession{ID: id, Mode: r.Mode})
		if _, err := store.FinalizeSession(ctx, id, r); err != nil {
			t.Fatalf("finalize %d: %v", i, err)
		}
	}

	entries, err := store.TopResults(ctx, domain.ModeClassic, 10)
	if err != nil {
		t.Fatalf("top results: %v", err)
	}
	want := []string{"best", "fast", "slow"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, name := range want {
		if entries[i].PlayerName != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, entries[i].PlayerName)
		}
	}
}
