package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docvault/internal/revocation"
	id "docvault/pkg/domain"
)

// Redis shares revocation markers across instances. Each key expires after
// the TTL so a missed Clear cannot deny access forever.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*Redis)

func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

type markerRecord struct {
	RevocationID string    `json:"revocation_id"`
	Reason       string    `json:"reason"`
	RevokedAt    time.Time `json:"revoked_at"`
}

func (r *Redis) Mark(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID, marker revocation.Marker) error {
	payload, err := json.Marshal(markerRecord{
		RevocationID: marker.RevocationID.String(),
		Reason:       marker.Reason.String(),
		RevokedAt:    marker.RevokedAt,
	})
	if err != nil {
		return fmt.Errorf("encode revocation marker: %w", err)
	}
	return r.client.Set(ctx, key(tenantID, documentID), payload, r.ttl).Err()
}

func (r *Redis) Lookup(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) (*revocation.Marker, error) {
	raw, err := r.client.Get(ctx, key(tenantID, documentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec markerRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode revocation marker: %w", err)
	}
	revID, err := id.ParseRevocationID(rec.RevocationID)
	if err != nil {
		return nil, fmt.Errorf("decode revocation marker: %w", err)
	}
	return &revocation.Marker{
		RevocationID: revID,
		Reason:       revocation.Reason(rec.Reason),
		RevokedAt:    rec.RevokedAt,
	}, nil
}

func (r *Redis) Clear(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) error {
	return r.client.Del(ctx, key(tenantID, documentID)).Err()
}
