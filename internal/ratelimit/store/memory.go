package store

import (
	"context"
	"sync"
	"time"

	"docvault/internal/ratelimit"
)

const sweepInterval = time.Minute

// InMemory is a sliding-window limiter local to the process. It is the
// fallback when Redis is unavailable and the only store without Redis.
// Keys whose window has emptied are dropped, at the latest on the first
// Allow after sweepInterval.
type InMemory struct {
	mu      sync.Mutex
	windows map[string]*window
	swept   time.Time
}

type window struct {
	stamps []time.Time
	span   time.Duration
}

func NewInMemory() *InMemory {
	return &InMemory{windows: make(map[string]*window)}
}

func (s *InMemory) Allow(_ context.Context, key string, limit ratelimit.Limit, now time.Time) (*ratelimit.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.swept) >= sweepInterval {
		s.sweep(now)
	}

	w, ok := s.windows[key]
	if !ok {
		w = &window{}
		s.windows[key] = w
	}
	w.span = limit.Window
	w.stamps = trim(w.stamps, now.Add(-limit.Window))
	if len(w.stamps) >= limit.Requests {
		if len(w.stamps) == 0 {
			delete(s.windows, key)
			return ratelimit.Denied(limit, now.Add(limit.Window), now), nil
		}
		return ratelimit.Denied(limit, w.stamps[0].Add(limit.Window), now), nil
	}
	w.stamps = append(w.stamps, now)
	return &ratelimit.Result{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests - len(w.stamps),
		ResetAt:   w.stamps[0].Add(limit.Window),
	}, nil
}

// sweep deletes every key with no request left inside its window.
func (s *InMemory) sweep(now time.Time) {
	for key, w := range s.windows {
		if w.stamps = trim(w.stamps, now.Add(-w.span)); len(w.stamps) == 0 {
			delete(s.windows, key)
		}
	}
	s.swept = now
}

// trim drops timestamps at or before cutoff; stamps are in arrival order.
func trim(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}
