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

	"docvault/internal/grant"
	"docvault/internal/grant/store"
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
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "document_access_grants"))
	s.tenantID = id.TenantID(uuid.New())
	s.docID = id.DocumentID(uuid.New())
}

func (s *PostgresStoreSuite) newGrant() *grant.Grant {
	tok, err := grant.NewToken()
	s.Require().NoError(err)
	return &grant.Grant{
		ID:          id.NewGrantID(),
		TenantID:    s.tenantID,
		DocumentID:  s.docID,
		Recipient:   id.ApplicantRecipient(id.ApplicantID(uuid.New())),
		Token:       tok,
		AccessLevel: grant.LevelView,
		IsActive:    true,
		GrantedBy:   "hr-1",
		GrantedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestDuplicateTokenIsAlreadyUsed() {
	ctx := context.Background()
	g := s.newGrant()
	s.Require().NoError(s.store.Create(ctx, g))

	dup := s.newGrant()
	dup.Token = g.Token
	s.ErrorIs(s.store.Create(ctx, dup), sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	g := s.newGrant()
	expiry := g.GrantedAt.Add(24 * time.Hour)
	g.ExpiresAt = &expiry
	s.Require().NoError(s.store.Create(ctx, g))

	got, err := s.store.FindByToken(ctx, s.tenantID, g.Token)
	s.Require().NoError(err)
	s.Equal(g.ID, got.ID)
	s.Equal(g.Recipient, got.Recipient)
	s.True(expiry.Equal(*got.ExpiresAt))
	s.Nil(got.LastAccessedAt)

	_, err = s.store.FindByToken(ctx, id.TenantID(uuid.New()), g.Token)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentIncrements() {
	ctx := context.Background()
	g := s.newGrant()
	s.Require().NoError(s.store.Create(ctx, g))

	const workers = 40
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.IncrementAccess(ctx, s.tenantID, g.ID, time.Now()); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Zero(failures.Load())
	got, err := s.store.FindByID(ctx, s.tenantID, g.ID)
	s.Require().NoError(err)
	s.EqualValues(workers, got.AccessCount)
}

func (s *PostgresStoreSuite) TestDeactivationIsOneWay() {
	ctx := context.Background()
	a, b := s.newGrant(), s.newGrant()
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	n, err := s.store.DeactivateAllForDocument(ctx, s.tenantID, s.docID, grant.DeactivatedByRevocation, time.Now())
	s.Require().NoError(err)
	s.Equal(2, n)

	got, changed, err := s.store.Deactivate(ctx, s.tenantID, a.ID, "again", time.Now())
	s.Require().NoError(err)
	s.False(changed)
	s.Equal(grant.DeactivatedByRevocation, got.RevokedReason)

	_, err = s.store.IncrementAccess(ctx, s.tenantID, a.ID, time.Now())
	s.True(errors.Is(err, sentinel.ErrInvalidState))
}

func (s *PostgresStoreSuite) TestExpiredBatch() {
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)
	old := s.newGrant()
	old.ExpiresAt = &past
	s.Require().NoError(s.store.Create(ctx, old))
	s.Require().NoError(s.store.Create(ctx, s.newGrant()))

	expired, err := s.store.ListExpired(ctx, s.tenantID, time.Now(), 10)
	s.Require().NoError(err)
	s.Require().Len(expired, 1)

	changed, err := s.store.DeactivateBatch(ctx, s.tenantID, []id.GrantID{expired[0].ID}, grant.DeactivatedByExpiry, time.Now())
	s.Require().NoError(err)
	s.Equal([]id.GrantID{old.ID}, changed)
}
