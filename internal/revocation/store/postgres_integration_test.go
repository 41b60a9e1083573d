//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docvault/internal/document"
	"docvault/internal/revocation"
	"docvault/internal/revocation/store"
	id "docvault/pkg/domain"
	"docvault/pkg/platform/sentinel"
	"docvault/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	tenantID id.TenantID
	docID    id.DocumentID
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "document_revocations"))
	s.tenantID = id.TenantID(uuid.New())
	s.docID = id.DocumentID(uuid.New())
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) newRecord() *revocation.Record {
	generated := s.now.Add(-time.Hour)
	return &revocation.Record{
		ID:            id.NewRevocationID(),
		TenantID:      s.tenantID,
		DocumentID:    s.docID,
		Subject:       id.ApplicantSubject(id.ApplicantID(uuid.New())),
		RevokedBy:     "hr-1",
		RevokedByRole: id.RoleHR,
		RevokedAt:     s.now,
		Reason:        revocation.ReasonComplianceIssue,
		ReasonDetails: "background check",
		Status:        revocation.StatusRevoked,
		IsActive:      true,
		Snapshot: revocation.DocumentSnapshot{
			Type:        "offer_letter",
			Status:      document.StatusAssigned,
			TemplateID:  "tmpl-1",
			GeneratedAt: &generated,
			FilePath:    "/letters/1.pdf",
		},
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	rec := s.newRecord()
	s.Require().NoError(s.store.Create(ctx, rec))

	got, err := s.store.FindActive(ctx, s.tenantID, s.docID)
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.Equal(rec.Subject, got.Subject)
	s.Equal(rec.Snapshot.Status, got.Snapshot.Status)
	s.Require().NotNil(got.Snapshot.GeneratedAt)
	s.True(rec.Snapshot.GeneratedAt.Equal(*got.Snapshot.GeneratedAt))
	s.True(rec.RevokedAt.Equal(got.RevokedAt))
}

func (s *PostgresStoreSuite) TestConcurrentCreateOneWins() {
	ctx := context.Background()
	const writers = 10
	var (
		wg        sync.WaitGroup
		wins      atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, s.newRecord())
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()
	s.EqualValues(1, wins.Load())
	s.EqualValues(writers-1, conflicts.Load())
}

func (s *PostgresStoreSuite) TestExecuteReinstates() {
	ctx := context.Background()
	rec := s.newRecord()
	s.Require().NoError(s.store.Create(ctx, rec))

	out, err := s.store.Execute(ctx, s.tenantID, rec.ID,
		func(r *revocation.Record) error { return r.CanReinstate() },
		func(r *revocation.Record) {
			r.ApplyReinstatement(id.Actor{ID: "root", Role: id.RoleSuperAdmin}, "reopened", s.now)
		},
	)
	s.Require().NoError(err)
	s.Equal(revocation.StatusReinstated, out.Status)

	_, err = s.store.FindActive(ctx, s.tenantID, s.docID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Create(ctx, s.newRecord()))
	history, err := s.store.ListByDocument(ctx, s.tenantID, s.docID)
	s.Require().NoError(err)
	s.Len(history, 2)
}
