package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shadiyar7/repair-platform-sub000/internal/domain/shared"
)

const cleanupInterval = 5 * time.Minute

// expiringSet is a map of keys to an owner value and a deadline, swept
// periodically by a background goroutine.
type expiringSet struct {
	mu        sync.Mutex
	entries   map[string]expiringEntry
	now       func() time.Time
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type expiringEntry struct {
	value     string
	expiresAt time.Time
}

func newExpiringSet() *expiringSet {
	s := &expiringSet{
		entries: make(map[string]expiringEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop()
	return s
}

// setIfAbsent stores value under key unless a live entry exists.
func (s *expiringSet) setIfAbsent(key, value string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return false
	}
	s.entries[key] = expiringEntry{value: value, expiresAt: now.Add(ttl)}
	return true
}

func (s *expiringSet) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

// deleteIf removes key when its live value equals value.
func (s *expiringSet) deleteIf(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.value == value {
		delete(s.entries, key)
	}
}

func (s *expiringSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *expiringSet) close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
}

func (s *expiringSet) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *expiringSet) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}

// InMemoryIdempotencyStore implements shared.IdempotencyStore for a single
// process. Replicas do not share state.
type InMemoryIdempotencyStore struct {
	set *expiringSet
}

// NewInMemoryIdempotencyStore creates a store with a background sweeper
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{set: newExpiringSet()}
}

// MarkProcessed records key. It returns false when key is already recorded.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return s.set.setIfAbsent(key, "1", ttl), nil
}

// IsProcessed reports whether key is recorded and not expired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	_, ok := s.set.get(key)
	return ok, nil
}

// Size returns the number of entries, expired ones included until swept
func (s *InMemoryIdempotencyStore) Size() int { return s.set.len() }

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.set.close()
	return nil
}

// InMemoryLocker implements shared.Locker for a single process.
type InMemoryLocker struct {
	set *expiringSet
}

// NewInMemoryLocker creates a locker with a background sweeper
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{set: newExpiringSet()}
}

// TryAcquire takes key for ttl if it is free or its holder expired
func (l *InMemoryLocker) TryAcquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	if !l.set.setIfAbsent(key, token, ttl) {
		return "", false, nil
	}
	return token, true, nil
}

// Release frees key if token still owns it
func (l *InMemoryLocker) Release(_ context.Context, key, token string) error {
	l.set.deleteIf(key, token)
	return nil
}

// Close stops the sweeper
func (l *InMemoryLocker) Close() error {
	l.set.close()
	return nil
}

var (
	_ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
	_ shared.Locker           = (*InMemoryLocker)(nil)
)
