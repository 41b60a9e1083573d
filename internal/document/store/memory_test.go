package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docvault/internal/document"
	id "docvault/pkg/domain"
	"docvault/pkg/platform/sentinel"
)

type DocumentStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestDocumentStoreSuite(t *testing.T) {
	suite.Run(t, new(DocumentStoreSuite))
}

func (s *DocumentStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *DocumentStoreSuite) TestTenantScoping() {
	tenantA := id.TenantID(uuid.New())
	tenantB := id.TenantID(uuid.New())
	doc := &document.Document{TenantID: tenantA, ID: id.DocumentID(uuid.New()), Status: document.StatusAssigned}
	s.Require().NoError(s.store.Put(s.ctx, doc))

	s.Run("found in owning tenant", func() {
		got, err := s.store.Get(s.ctx, tenantA, doc.ID)
		s.Require().NoError(err)
		s.Equal(document.StatusAssigned, got.Status)
	})

	s.Run("invisible to other tenants", func() {
		_, err := s.store.Get(s.ctx, tenantB, doc.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.ErrorIs(s.store.SetStatus(s.ctx, tenantB, doc.ID, document.StatusRevoked), sentinel.ErrNotFound)
	})
}

func (s *DocumentStoreSuite) TestSetStatus() {
	tenantID := id.TenantID(uuid.New())
	doc := &document.Document{TenantID: tenantID, ID: id.DocumentID(uuid.New()), Status: document.StatusGenerated}
	s.Require().NoError(s.store.Put(s.ctx, doc))

	s.Require().NoError(s.store.SetStatus(s.ctx, tenantID, doc.ID, document.StatusRevoked))
	got, err := s.store.Get(s.ctx, tenantID, doc.ID)
	s.Require().NoError(err)
	s.Equal(document.StatusRevoked, got.Status)
	s.Equal(document.StatusGenerated, doc.Status, "caller's copy must not change")
}
