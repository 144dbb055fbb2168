package cache

import (
	"context"
	"sync"
	"time"

	"github.com/paintworks/backend/internal/domain/shared"
)

const sweepInterval = 5 * time.Minute

type slot struct {
	value   string
	expires time.Time
}

func (s slot) liveAt(now time.Time) bool {
	return now.Before(s.expires)
}

// InMemoryIdempotencyStore keeps keys in process memory. It does not
// survive restarts and is not shared between server processes.
type InMemoryIdempotencyStore struct {
	mu    sync.RWMutex
	slots map[string]slot

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts a goroutine that
// sweeps expired keys until Close
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		slots: make(map[string]slot),
		done:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop()
	return s
}

func (s *InMemoryIdempotencyStore) lookup(key string) (slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slots[key]
	return sl, ok && sl.liveAt(time.Now())
}

func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.slots[key]; ok && sl.liveAt(now) {
		return false, nil
	}
	s.slots[key] = slot{value: "1", expires: now.Add(ttl)}
	return true, nil
}

func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	_, live := s.lookup(key)
	return live, nil
}

func (s *InMemoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	sl, live := s.lookup(key)
	if !live {
		return "", nil
	}
	return sl.value, nil
}

func (s *InMemoryIdempotencyStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	s.slots[key] = slot{value: value, expires: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper; later calls are no-ops
func (s *InMemoryIdempotencyStore) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}

// Size counts stored keys, including expired ones not yet swept
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

func (s *InMemoryIdempotencyStore) sweepLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *InMemoryIdempotencyStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sl := range s.slots {
		if !sl.liveAt(now) {
			delete(s.slots, key)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
