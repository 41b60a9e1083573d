package service

import (
	"context"
	"errors"
	"log/slog"

	"docvault/internal/revocation"
	"docvault/internal/revocation/metrics"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/sentinel"
)

// ActiveFinder is the read the lookup needs from the ledger.
type ActiveFinder interface {
	FindActive(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) (*revocation.Record, error)
}

// Lookup answers "is this document revoked" for the access gate. The cache
// answers first; on a miss or cache error the ledger decides and a hit there
// re-warms the cache. A cache entry only ever outlives its revocation by a
// failed Clear. It needs no grant registry, so the gate and the grant
// registry can be built before the revocation service.
type Lookup struct {
	ledger  ActiveFinder
	cache   Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewLookup accepts a nil cache, logger or metrics.
func NewLookup(ledger ActiveFinder, cache Cache, logger *slog.Logger, m *metrics.Metrics) *Lookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lookup{ledger: ledger, cache: cache, logger: logger, metrics: m}
}

func (l *Lookup) Lookup(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) (*revocation.Marker, error) {
	if l.cache != nil {
		m, err := l.cache.Lookup(ctx, tenantID, documentID)
		switch {
		case err != nil:
			l.count("error")
			l.logger.WarnContext(ctx, "revocation cache lookup failed, using ledger",
				"document_id", documentID.String(),
				"error", err,
			)
		case m != nil:
			l.count("hit")
			return m, nil
		default:
			l.count("miss")
		}
	}

	rec, err := l.ledger.FindActive(ctx, tenantID, documentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to check revocation")
	}
	l.mark(ctx, rec)
	m := rec.Marker()
	return &m, nil
}

// mark caches rec's marker and then re-reads the ledger. When rec is no
// longer the active revocation, a reinstate committed after the caller read
// the ledger, and the entry is cleared again.
func (l *Lookup) mark(ctx context.Context, rec *revocation.Record) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Mark(ctx, rec.TenantID, rec.DocumentID, rec.Marker()); err != nil {
		l.logger.WarnContext(ctx, "failed to cache revocation",
			"document_id", rec.DocumentID.String(),
			"error", err,
		)
		return
	}
	active, err := l.ledger.FindActive(ctx, rec.TenantID, rec.DocumentID)
	if err == nil && active.ID == rec.ID {
		return
	}
	if err := l.cache.Clear(ctx, rec.TenantID, rec.DocumentID); err != nil {
		l.logger.WarnContext(ctx, "failed to drop stale revocation from cache",
			"document_id", rec.DocumentID.String(),
			"error", err,
		)
	}
}

func (l *Lookup) count(result string) {
	if l.metrics != nil {
		l.metrics.IncCacheLookup(result)
	}
}
