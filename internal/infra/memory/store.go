package memory

import (
	"context"
	"sort"
	"sync"

	"snippet-quiz-service/internal/domain"
)

// Store keeps sessions and results in process memory under a single mutex,
// so the finalize step (completion flip plus result insert) is atomic with
// respect to a concurrent duplicate submission.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]domain.GameSession
	results  []domain.GameResult
	nextID   int64
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]domain.GameSession),
		nextID:   1,
	}
}

func (s *Store) CreateSession(_ context.Context, session domain.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (domain.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) FinalizeSession(_ context.Context, id string, result domain.GameResult) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || session.Completed {
		return 0, domain.ErrSessionNotFound
	}
	session.Completed = true
	s.sessions[id] = session

	result.ID = s.nextID
	s.nextID++
	s.results = append(s.results, result)
	return result.ID, nil
}

func (s *Store) TopResults(_ context.Context, mode domain.GameMode, limit int) ([]domain.GameResult, error) {
	s.mu.RLock()
	entries := make([]domain.GameResult, 0, len(s.results))
	for _, r := range s.results {
		if r.Mode == mode && r.TotalQuestions > 0 {
			entries = append(entries, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].TimeTaken != entries[j].TimeTaken {
			return entries[i].TimeTaken < entries[j].TimeTaken
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
