package logger

import "sync"

// ring is a fixed-capacity buffer of the most recent entries. Pushes never
// block; once full, each push evicts the oldest entry.
type ring[T any] struct {
	mu    sync.RWMutex
	items []T
	start int
	n     int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{items: make([]T, capacity)}
}

func (r *ring[T]) push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.n < len(r.items) {
		r.items[(r.start+r.n)%len(r.items)] = item
		r.n++
		return
	}
	r.items[r.start] = item
	r.start = (r.start + 1) % len(r.items)
}

// snapshot copies the retained entries, oldest first.
func (r *ring[T]) snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.n)
	for i := range out {
		out[i] = r.items[(r.start+i)%len(r.items)]
	}
	return out
}
