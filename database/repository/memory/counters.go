package memory

import (
	"context"
	"sync"
)

// CounterRepo is an in-memory counterRepo.CounterRepository.
type CounterRepo struct {
	mu     sync.Mutex
	seq    map[string]int64
	faults *Faults
}

func (r *CounterRepo) Increment(_ context.Context, key string) (int64, error) {
	if err := r.faults.take(OpCounterIncrement); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq[key]++
	return r.seq[key], nil
}

// Current returns the last value handed out for key.
func (r *CounterRepo) Current(key string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq[key]
}
