package bagel

import (
	"sync"

	"project/graph"
)

// Stripes is a partitioned lock: n independent mutexes, key k is guarded by
// mutex hash(k) % n. Keys sharing a stripe serialize, so more stripes mean
// less contention between receive goroutines and fewer stripes mean less
// memory; n only needs to comfortably exceed the number of goroutines.
type Stripes[K graph.ID] struct {
	locks []sync.Mutex
}

func NewStripes[K graph.ID](n int) *Stripes[K] {
	if n <= 0 {
		n = DEFAULT_STRIPES
	}
	return &Stripes[K]{locks: make([]sync.Mutex, n)}
}

func (s *Stripes[K]) Len() int {
	return len(s.locks)
}

// Index is the stripe guarding k.
func (s *Stripes[K]) Index(k K) int {
	return int(graph.Hash(k) % uint64(len(s.locks)))
}

// Lock acquires the stripe of k and returns the matching unlock.
func (s *Stripes[K]) Lock(k K) func() {
	mu := &s.locks[s.Index(k)]
	mu.Lock()
	return mu.Unlock
}
