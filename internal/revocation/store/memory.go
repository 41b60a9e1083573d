package store

import (
	"context"
	"sort"
	"sync"

	"docvault/internal/revocation"
	id "docvault/pkg/domain"
	"docvault/pkg/platform/sentinel"
)

type documentKey struct {
	tenantID   id.TenantID
	documentID id.DocumentID
}

// InMemory enforces the one-effective-revocation-per-document rule under
// its mutex, the same rule the Postgres partial unique index enforces.
type InMemory struct {
	mu      sync.Mutex
	records map[id.RevocationID]*revocation.Record
	active  map[documentKey]id.RevocationID
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[id.RevocationID]*revocation.Record),
		active:  make(map[documentKey]id.RevocationID),
	}
}

func (s *InMemory) Create(_ context.Context, rec *revocation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := documentKey{rec.TenantID, rec.DocumentID}
	if rec.IsEffective() {
		if _, taken := s.active[key]; taken {
			return sentinel.ErrConflict
		}
		s.active[key] = rec.ID
	}
	s.records[rec.ID] = rec.Clone()
	return nil
}

func (s *InMemory) FindActive(_ context.Context, tenantID id.TenantID, documentID id.DocumentID) (*revocation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revID, ok := s.active[documentKey{tenantID, documentID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.records[revID].Clone(), nil
}

func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID, revocationID id.RevocationID) (*revocation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[revocationID]
	if !ok || rec.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemory) Execute(_ context.Context, tenantID id.TenantID, revocationID id.RevocationID, validate func(*revocation.Record) error, mutate func(*revocation.Record)) (*revocation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[revocationID]
	if !ok || stored.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	working := stored.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)

	key := documentKey{working.TenantID, working.DocumentID}
	if stored.IsEffective() && !working.IsEffective() {
		delete(s.active, key)
	}
	s.records[revocationID] = working
	return working.Clone(), nil
}

func (s *InMemory) ListByDocument(_ context.Context, tenantID id.TenantID, documentID id.DocumentID) ([]*revocation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*revocation.Record
	for _, rec := range s.records {
		if rec.TenantID == tenantID && rec.DocumentID == documentID {
			out = append(out, rec.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RevokedAt.After(out[j].RevokedAt)
	})
	return out, nil
}
