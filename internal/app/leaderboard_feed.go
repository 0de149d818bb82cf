package app

import (
	"sync"

	"snippet-quiz-service/internal/domain"
)

// LeaderboardFeed fans out leaderboard snapshots to subscribers, one channel
// set per game mode.
type LeaderboardFeed struct {
	mu          sync.Mutex
	subscribers map[domain.GameMode]map[chan []domain.GameResult]struct{}
}

func NewLeaderboardFeed() *LeaderboardFeed {
	return &LeaderboardFeed{
		subscribers: make(map[domain.GameMode]map[chan []domain.GameResult]struct{}),
	}
}

// Subscribe registers a listener for one mode. The caller must invoke the
// returned cancel function to avoid leaks.
func (f *LeaderboardFeed) Subscribe(mode domain.GameMode) (<-chan []domain.GameResult, func()) {
	ch := make(chan []domain.GameResult, 8)

	f.mu.Lock()
	set, ok := f.subscribers[mode]
	if !ok {
		set = make(map[chan []domain.GameResult]struct{})
		f.subscribers[mode] = set
	}
	set[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if set, ok := f.subscribers[mode]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(f.subscribers, mode)
			}
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of the mode. Slow
// subscribers have their oldest pending update dropped rather than blocking
// the publisher.
func (f *LeaderboardFeed) Publish(mode domain.GameMode, entries []domain.GameResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[mode] {
		select {
		case ch <- entries:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- entries
		}
	}
}
