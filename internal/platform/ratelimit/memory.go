package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process fixed-window limiter.
type Memory struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu    sync.Mutex
	store map[string]entry
}

type entry struct {
	count int
	reset time.Time
}

// NewMemory returns a limiter allowing limit events per window. A non-positive limit or
// window yields an Unlimited limiter.
func NewMemory(limit int, window time.Duration, clock func() time.Time) Limiter {
	if limit <= 0 || window <= 0 {
		return Unlimited{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &Memory{
		limit:  limit,
		window: window,
		clock:  clock,
		store:  make(map[string]entry),
	}
}

// Allow records one event for key.
func (l *Memory) Allow(_ context.Context, key string) (bool, error) {
	key = normaliseKey(key)
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.store[key]
	if !ok || !now.Before(e.reset) {
		l.store[key] = entry{count: 1, reset: now.Add(l.window)}
		l.pruneLocked(now)
		return true, nil
	}
	if e.count >= l.limit {
		return false, nil
	}
	e.count++
	l.store[key] = e
	return true, nil
}

func (l *Memory) pruneLocked(now time.Time) {
	for key, e := range l.store {
		if !now.Before(e.reset) {
			delete(l.store, key)
		}
	}
}
