package randx

import (
	"math/rand/v2"
	"sync"
)

// LockedRand wraps math/rand/v2.Rand so it can be shared across request
// goroutines.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func New(r *rand.Rand) *LockedRand {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &LockedRand{r: r}
}

func (l *LockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *LockedRand) Perm(n int) []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Perm(n)
}

// Shuffle runs an unbiased Fisher-Yates permutation over n elements.
func (l *LockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}
