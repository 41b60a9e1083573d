package service

import (
	"context"
	"log/slog"
	"time"

	"docvault/internal/audit"
	"docvault/internal/grant"
	"docvault/internal/grant/metrics"
	id "docvault/pkg/domain"
)

// Sweeper deactivates grants whose expiry has passed. Validation already
// treats them as expired; the sweep only brings isActive in line and records
// an expired event per grant.
type Sweeper struct {
	store   Store
	auditor AuditEmitter
	tenants []id.TenantID
	batch   int
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewSweeper covers the given tenants. metrics may be nil.
func NewSweeper(store Store, auditor AuditEmitter, tenants []id.TenantID, batch int, logger *slog.Logger, m *metrics.Metrics) *Sweeper {
	if batch <= 0 {
		batch = 500
	}
	return &Sweeper{
		store:   store,
		auditor: auditor,
		tenants: tenants,
		batch:   batch,
		logger:  logger,
		metrics: m,
	}
}

// Start sweeps every interval until ctx is cancelled.
func (w *Sweeper) Start(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SweepAt(ctx, time.Now().UTC()); err != nil {
				w.logger.ErrorContext(ctx, "grant expiry sweep failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SweepAt deactivates grants expired as of now across all tenants and
// returns how many changed. A failing tenant does not stop the others.
func (w *Sweeper) SweepAt(ctx context.Context, now time.Time) (int, error) {
	total := 0
	var firstErr error
	for _, tenantID := range w.tenants {
		n, err := w.sweepTenant(ctx, tenantID, now)
		total += n
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return total, firstErr
}

func (w *Sweeper) sweepTenant(ctx context.Context, tenantID id.TenantID, now time.Time) (int, error) {
	total := 0
	for {
		expired, err := w.store.ListExpired(ctx, tenantID, now, w.batch)
		if err != nil || len(expired) == 0 {
			return total, err
		}
		ids := make([]id.GrantID, len(expired))
		byID := make(map[id.GrantID]*grant.Grant, len(expired))
		for i, g := range expired {
			ids[i] = g.ID
			byID[g.ID] = g
		}
		changed, err := w.store.DeactivateBatch(ctx, tenantID, ids, grant.DeactivatedByExpiry, now)
		if err != nil {
			return total, err
		}
		for _, gid := range changed {
			g := byID[gid]
			if err := w.auditor.Emit(ctx, audit.Event{
				TenantID:    tenantID,
				DocumentID:  g.DocumentID,
				Subject:     g.Recipient.Subject(),
				Action:      audit.ActionExpired,
				PerformedBy: id.SystemActor,
				Reason:      grant.DeactivatedByExpiry,
				Metadata:    audit.Metadata{GrantID: g.ID, AccessLevel: string(g.AccessLevel)},
			}); err != nil {
				w.logger.WarnContext(ctx, "expired grant not audited", "grant_id", gid.String(), "error", err)
			}
		}
		total += len(changed)
		if w.metrics != nil && len(changed) > 0 {
			w.metrics.AddDeactivated("expiry", len(changed))
		}
		if len(expired) < w.batch || len(changed) == 0 {
			return total, nil
		}
	}
}
