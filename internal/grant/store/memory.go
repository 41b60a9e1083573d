package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"docvault/internal/grant"
	id "docvault/pkg/domain"
	"docvault/pkg/platform/sentinel"
)

// InMemory keeps grants in one map guarded by a mutex; the token index is
// global because tokens are unique across tenants.
type InMemory struct {
	mu      sync.Mutex
	grants  map[id.GrantID]*grant.Grant
	byToken map[string]id.GrantID
}

func NewInMemory() *InMemory {
	return &InMemory{
		grants:  make(map[id.GrantID]*grant.Grant),
		byToken: make(map[string]id.GrantID),
	}
}

func clone(g *grant.Grant) *grant.Grant {
	c := *g
	c.ExpiresAt = cloneTime(g.ExpiresAt)
	c.RevokedAt = cloneTime(g.RevokedAt)
	c.LastAccessedAt = cloneTime(g.LastAccessedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (s *InMemory) Create(_ context.Context, g *grant.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byToken[g.Token]; taken {
		return sentinel.ErrAlreadyUsed
	}
	s.grants[g.ID] = clone(g)
	s.byToken[g.Token] = g.ID
	return nil
}

// lookup must be called with mu held.
func (s *InMemory) lookup(tenantID id.TenantID, grantID id.GrantID) (*grant.Grant, error) {
	g, ok := s.grants[grantID]
	if !ok || g.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	return g, nil
}

func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID, grantID id.GrantID) (*grant.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.lookup(tenantID, grantID)
	if err != nil {
		return nil, err
	}
	return clone(g), nil
}

func (s *InMemory) FindByToken(_ context.Context, tenantID id.TenantID, token string) (*grant.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gid, ok := s.byToken[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	g, err := s.lookup(tenantID, gid)
	if err != nil {
		return nil, err
	}
	return clone(g), nil
}

func (s *InMemory) IncrementAccess(_ context.Context, tenantID id.TenantID, grantID id.GrantID, at time.Time) (*grant.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.lookup(tenantID, grantID)
	if err != nil {
		return nil, err
	}
	if !g.IsActive {
		return nil, sentinel.ErrInvalidState
	}
	g.AccessCount++
	g.LastAccessedAt = &at
	return clone(g), nil
}

func (s *InMemory) Deactivate(_ context.Context, tenantID id.TenantID, grantID id.GrantID, reason string, at time.Time) (*grant.Grant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.lookup(tenantID, grantID)
	if err != nil {
		return nil, false, err
	}
	changed := g.Deactivate(reason, at)
	return clone(g), changed, nil
}

func (s *InMemory) DeactivateAllForDocument(_ context.Context, tenantID id.TenantID, documentID id.DocumentID, reason string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, g := range s.grants {
		if g.TenantID == tenantID && g.DocumentID == documentID && g.Deactivate(reason, at) {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) ListByDocument(_ context.Context, tenantID id.TenantID, documentID id.DocumentID) ([]*grant.Grant, error) {
	s.mu.Lock()
	out := make([]*grant.Grant, 0)
	for _, g := range s.grants {
		if g.TenantID == tenantID && g.DocumentID == documentID {
			out = append(out, clone(g))
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.After(out[j].GrantedAt) })
	return out, nil
}

func (s *InMemory) ListExpired(_ context.Context, tenantID id.TenantID, now time.Time, limit int) ([]*grant.Grant, error) {
	s.mu.Lock()
	out := make([]*grant.Grant, 0)
	for _, g := range s.grants {
		if g.TenantID == tenantID && g.Check(now) == grant.ReasonExpired {
			out = append(out, clone(g))
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) DeactivateBatch(_ context.Context, tenantID id.TenantID, grantIDs []id.GrantID, reason string, at time.Time) ([]id.GrantID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := make([]id.GrantID, 0, len(grantIDs))
	for _, gid := range grantIDs {
		g, err := s.lookup(tenantID, gid)
		if err != nil {
			continue
		}
		if g.Deactivate(reason, at) {
			changed = append(changed, gid)
		}
	}
	return changed, nil
}
