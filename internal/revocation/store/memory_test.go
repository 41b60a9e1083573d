package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docvault/internal/document"
	"docvault/internal/revocation"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store    *InMemory
	tenantID id.TenantID
	docID    id.DocumentID
	now      time.Time
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.tenantID = id.TenantID(uuid.New())
	s.docID = id.DocumentID(uuid.New())
	s.now = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
}

func (s *InMemorySuite) newRecord(at time.Time) *revocation.Record {
	return &revocation.Record{
		ID:            id.NewRevocationID(),
		TenantID:      s.tenantID,
		DocumentID:    s.docID,
		RevokedBy:     "hr-1",
		RevokedByRole: id.RoleHR,
		RevokedAt:     at,
		Reason:        revocation.ReasonDuplicateOffer,
		Status:        revocation.StatusRevoked,
		IsActive:      true,
		Snapshot:      revocation.DocumentSnapshot{Status: document.StatusAssigned},
	}
}

func (s *InMemorySuite) reinstate(rec *revocation.Record) {
	_, err := s.store.Execute(context.Background(), s.tenantID, rec.ID,
		func(r *revocation.Record) error { return r.CanReinstate() },
		func(r *revocation.Record) {
			r.ApplyReinstatement(id.Actor{ID: "root", Role: id.RoleSuperAdmin}, "ok", s.now)
		},
	)
	s.Require().NoError(err)
}

func (s *InMemorySuite) TestOneEffectiveRevocationPerDocument() {
	ctx := context.Background()
	first := s.newRecord(s.now)
	s.Require().NoError(s.store.Create(ctx, first))
	s.ErrorIs(s.store.Create(ctx, s.newRecord(s.now)), sentinel.ErrConflict)

	active, err := s.store.FindActive(ctx, s.tenantID, s.docID)
	s.Require().NoError(err)
	s.Equal(first.ID, active.ID)

	s.reinstate(first)
	_, err = s.store.FindActive(ctx, s.tenantID, s.docID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Create(ctx, s.newRecord(s.now.Add(time.Hour))))
}

func (s *InMemorySuite) TestExecuteValidateBlocksWrite() {
	ctx := context.Background()
	rec := s.newRecord(s.now)
	s.Require().NoError(s.store.Create(ctx, rec))
	s.reinstate(rec)

	_, err := s.store.Execute(ctx, s.tenantID, rec.ID,
		func(r *revocation.Record) error { return r.CanReinstate() },
		func(r *revocation.Record) { r.ReinstatedReason = "overwritten" },
	)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	stored, err := s.store.FindByID(ctx, s.tenantID, rec.ID)
	s.Require().NoError(err)
	s.Equal("ok", stored.ReinstatedReason)
}

func (s *InMemorySuite) TestTenantScoping() {
	ctx := context.Background()
	rec := s.newRecord(s.now)
	s.Require().NoError(s.store.Create(ctx, rec))

	other := id.TenantID(uuid.New())
	_, err := s.store.FindByID(ctx, other, rec.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindActive(ctx, other, s.docID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	list, err := s.store.ListByDocument(ctx, other, s.docID)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *InMemorySuite) TestListNewestFirst() {
	ctx := context.Background()
	older := s.newRecord(s.now)
	s.Require().NoError(s.store.Create(ctx, older))
	s.reinstate(older)
	newer := s.newRecord(s.now.Add(24 * time.Hour))
	s.Require().NoError(s.store.Create(ctx, newer))

	list, err := s.store.ListByDocument(ctx, s.tenantID, s.docID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(newer.ID, list[0].ID)
	s.Equal(older.ID, list[1].ID)
	s.Equal(revocation.StatusReinstated, list[1].Status)
}

func (s *InMemorySuite) TestReturnsCopies() {
	ctx := context.Background()
	rec := s.newRecord(s.now)
	s.Require().NoError(s.store.Create(ctx, rec))
	rec.Reason = revocation.ReasonOther

	got, err := s.store.FindByID(ctx, s.tenantID, rec.ID)
	s.Require().NoError(err)
	got.Status = revocation.StatusReinstated

	again, err := s.store.FindByID(ctx, s.tenantID, rec.ID)
	s.Require().NoError(err)
	s.Equal(revocation.ReasonDuplicateOffer, again.Reason)
	s.Equal(revocation.StatusRevoked, again.Status)
}
