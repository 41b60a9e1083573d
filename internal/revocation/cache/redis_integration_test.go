//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docvault/internal/revocation"
	"docvault/internal/revocation/cache"
	id "docvault/pkg/domain"
	"docvault/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis    *containers.RedisContainer
	tenantID id.TenantID
	docID    id.DocumentID
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.tenantID = id.TenantID(uuid.New())
	s.docID = id.DocumentID(uuid.New())
}

func (s *RedisCacheSuite) TestMarkLookupClear() {
	ctx := context.Background()
	c := cache.NewRedis(s.redis.Client)
	marker := revocation.Marker{
		RevocationID: id.NewRevocationID(),
		Reason:       revocation.ReasonBusinessDecision,
		RevokedAt:    time.Now().UTC().Truncate(time.Second),
	}

	m, err := c.Lookup(ctx, s.tenantID, s.docID)
	s.Require().NoError(err)
	s.Nil(m)

	s.Require().NoError(c.Mark(ctx, s.tenantID, s.docID, marker))
	m, err = c.Lookup(ctx, s.tenantID, s.docID)
	s.Require().NoError(err)
	s.Require().NotNil(m)
	s.Equal(marker.RevocationID, m.RevocationID)
	s.Equal(marker.Reason, m.Reason)
	s.True(marker.RevokedAt.Equal(m.RevokedAt))

	s.Require().NoError(c.Clear(ctx, s.tenantID, s.docID))
	m, err = c.Lookup(ctx, s.tenantID, s.docID)
	s.Require().NoError(err)
	s.Nil(m)
}

func (s *RedisCacheSuite) TestEntriesCarryTTL() {
	ctx := context.Background()
	c := cache.NewRedis(s.redis.Client, cache.WithTTL(30*time.Second))
	s.Require().NoError(c.Mark(ctx, s.tenantID, s.docID, revocation.Marker{RevocationID: id.NewRevocationID()}))

	ttl, err := s.redis.Client.TTL(ctx, "docvault:revoked:"+s.tenantID.String()+":"+s.docID.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, 30*time.Second)
}
