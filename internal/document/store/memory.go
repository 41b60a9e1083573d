package store

import (
	"context"
	"sync"
	"time"

	"docvault/internal/document"
	id "docvault/pkg/domain"
	"docvault/pkg/platform/sentinel"
)

type key struct {
	tenant id.TenantID
	doc    id.DocumentID
}

// InMemory is a tenant-partitioned document store for tests and local runs.
type InMemory struct {
	mu   sync.RWMutex
	docs map[key]document.Document
}

func NewInMemory() *InMemory {
	return &InMemory{docs: make(map[key]document.Document)}
}

// Put inserts or replaces a document. Documents are produced upstream, so
// this is the seeding path.
func (s *InMemory) Put(_ context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key{doc.TenantID, doc.ID}] = *doc
	return nil
}

func (s *InMemory) Get(_ context.Context, tenantID id.TenantID, docID id.DocumentID) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[key{tenantID, docID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &doc, nil
}

func (s *InMemory) SetStatus(ctx context.Context, tenantID id.TenantID, docID id.DocumentID, status document.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{tenantID, docID}
	doc, ok := s.docs[k]
	if !ok {
		return sentinel.ErrNotFound
	}
	doc.Status = status
	doc.UpdatedAt = time.Now()
	s.docs[k] = doc
	return nil
}
