package reservation

import (
	"context"
	"sync"
	"time"
)

// memoryStore is a single-instance development stand-in. The mutex gives
// ClaimAndDelete the same at-most-once semantics as the database store, but
// state dies with the process and is invisible to other instances.
type memoryStore struct {
	mu           sync.Mutex
	reservations map[string]*PendingReservation
}

func NewMemoryStore() Store {
	return &memoryStore{
		reservations: make(map[string]*PendingReservation),
	}
}

func (s *memoryStore) Put(_ context.Context, r *PendingReservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	s.reservations[r.Authority] = &cp
	return nil
}

func (s *memoryStore) ClaimAndDelete(_ context.Context, authority string) (*PendingReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[authority]
	if !ok {
		return nil, nil
	}
	delete(s.reservations, authority)
	return r, nil
}

func (s *memoryStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var removed int64
	for authority, r := range s.reservations {
		if r.Expired(now) {
			delete(s.reservations, authority)
			removed++
		}
	}
	return removed, nil
}
