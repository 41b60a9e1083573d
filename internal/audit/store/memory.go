package store

import (
	"context"
	"sort"
	"sync"

	"docvault/internal/audit"
	id "docvault/pkg/domain"
)

// InMemory keeps events per tenant in append order.
type InMemory struct {
	mu     sync.RWMutex
	events map[id.TenantID][]audit.Event
}

func NewInMemory() *InMemory {
	return &InMemory{events: make(map[id.TenantID][]audit.Event)}
}

func (s *InMemory) Append(_ context.Context, event *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.TenantID] = append(s.events[event.TenantID], event.Clone())
	return nil
}

func (s *InMemory) List(_ context.Context, tenantID id.TenantID, q audit.Query) ([]audit.Event, error) {
	q = q.Normalize()

	s.mu.RLock()
	matched := make([]audit.Event, 0)
	for i := range s.events[tenantID] {
		if q.Matches(&s.events[tenantID][i]) {
			matched = append(matched, s.events[tenantID][i].Clone())
		}
	}
	s.mu.RUnlock()

	// Stable sort keeps append order for equal timestamps.
	sort.SliceStable(matched, func(i, j int) bool {
		if q.Ascending {
			return matched[i].Timestamp.Before(matched[j].Timestamp)
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}
