// Package cache keeps short-lived markers of revoked documents in front of
// the revocation ledger. Entries only ever speed up a denial; absence of an
// entry says nothing.
package cache

import (
	"context"
	"sync"
	"time"

	"docvault/internal/revocation"
	id "docvault/pkg/domain"
)

const DefaultTTL = 10 * time.Minute

type entry struct {
	marker    revocation.Marker
	expiresAt time.Time
}

type InMemory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewInMemory(ttl time.Duration) *InMemory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InMemory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *InMemory) Mark(_ context.Context, tenantID id.TenantID, documentID id.DocumentID, marker revocation.Marker) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(tenantID, documentID)] = entry{marker: marker, expiresAt: c.now().Add(c.ttl)}
	return nil
}

func (c *InMemory) Lookup(_ context.Context, tenantID id.TenantID, documentID id.DocumentID) (*revocation.Marker, error) {
	k := key(tenantID, documentID)
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, k)
		c.mu.Unlock()
		return nil, nil
	}
	m := e.marker
	return &m, nil
}

func (c *InMemory) Clear(_ context.Context, tenantID id.TenantID, documentID id.DocumentID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key(tenantID, documentID))
	return nil
}

const keyPrefix = "docvault:revoked:"

func key(tenantID id.TenantID, documentID id.DocumentID) string {
	return keyPrefix + tenantID.String() + ":" + documentID.String()
}
