package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store records the last accepted request per user. The in-memory store is
// the default; a Redis store makes the cooldown survive restarts and span
// process instances.
type Store interface {
	// Acquire accepts the request and records now as the user's last accepted
	// timestamp when the window has elapsed. Otherwise it rejects and returns
	// the remaining wait.
	Acquire(ctx context.Context, userID string, now time.Time, window time.Duration) (bool, time.Duration, error)
}

// Limiter is a fixed-window cooldown gate for ticket creation. It is a soft
// control, not a security boundary.
type Limiter struct {
	store  Store
	window time.Duration
	now    func() time.Time
}

// NewLimiter constructs a limiter. A nil clock defaults to time.Now.
func NewLimiter(store Store, window time.Duration, clock func() time.Time) *Limiter {
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{store: store, window: window, now: clock}
}

// TryAcquire reports whether the user may open a ticket now. When denied,
// retryAfter is the positive remaining cooldown. Store errors fail open: a
// broken cooldown backend must not block ticket creation.
func (l *Limiter) TryAcquire(ctx context.Context, userID string) (bool, time.Duration) {
	allowed, retryAfter, err := l.store.Acquire(ctx, userID, l.now(), l.window)
	if err != nil {
		return true, 0
	}
	return allowed, retryAfter
}

// MemoryStore keeps the cooldown map in process memory. State is volatile:
// a restart resets everyone's cooldown.
type MemoryStore struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[string]time.Time)}
}

func (s *MemoryStore) Acquire(_ context.Context, userID string, now time.Time, window time.Duration) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.last[userID]; ok {
		elapsed := now.Sub(last)
		if elapsed < window {
			return false, window - elapsed, nil
		}
	}
	s.last[userID] = now
	return true, 0, nil
}
