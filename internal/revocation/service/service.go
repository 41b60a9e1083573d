package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"docvault/internal/audit"
	"docvault/internal/document"
	"docvault/internal/document/status"
	"docvault/internal/grant"
	"docvault/internal/notify"
	"docvault/internal/policy"
	"docvault/internal/revocation"
	"docvault/internal/revocation/metrics"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/sentinel"
	"docvault/pkg/requestcontext"
)

// Store persists revocation records. Create returns sentinel.ErrConflict
// when the document already has an effective revocation; lookups return
// sentinel.ErrNotFound.
type Store interface {
	Create(ctx context.Context, rec *revocation.Record) error
	FindActive(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) (*revocation.Record, error)
	FindByID(ctx context.Context, tenantID id.TenantID, revocationID id.RevocationID) (*revocation.Record, error)
	// Execute loads the record, runs validate, then mutate, and persists the
	// result. A validate error is returned unchanged and nothing is written.
	Execute(ctx context.Context, tenantID id.TenantID, revocationID id.RevocationID, validate func(*revocation.Record) error, mutate func(*revocation.Record)) (*revocation.Record, error)
	ListByDocument(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) ([]*revocation.Record, error)
}

// Documents is the external document store.
type Documents interface {
	Get(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) (*document.Document, error)
	SetStatus(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID, status document.Status) error
}

// Grants is the part of the grant registry the cascade uses.
type Grants interface {
	DeactivateAllForDocument(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID, reason string) (int, error)
}

// Cache holds markers for revoked documents. A missing entry means
// "ask the ledger", never "not revoked".
type Cache interface {
	Mark(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID, marker revocation.Marker) error
	Lookup(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) (*revocation.Marker, error)
	Clear(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) error
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store     Store
	tx        Tx
	documents Documents
	grants    Grants
	auditor   AuditEmitter
	cache     Cache
	notifier  notify.Notifier
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	lookup    *Lookup
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithTx replaces the default in-memory ShardedTx.
func WithTx(tx Tx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func New(store Store, documents Documents, grants Grants, auditor AuditEmitter, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "revocation store is required")
	}
	if documents == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "document store is required")
	}
	if grants == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "grant registry is required")
	}
	if auditor == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "audit emitter is required")
	}
	svc := &Service{
		store:     store,
		documents: documents,
		grants:    grants,
		auditor:   auditor,
		notifier:  notify.Nop{},
		logger:    slog.Default(),
		tracer:    otel.Tracer("docvault/revocation"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.tx == nil {
		svc.tx = NewShardedTx(0)
	}
	svc.lookup = NewLookup(store, svc.cache, svc.logger, svc.metrics)
	return svc, nil
}

var errAlreadyRevoked = dErrors.New(dErrors.CodeConflict, "document is already revoked")

// Revoke withdraws a document. Record creation, the document status write
// and the grant cascade commit together; audit, cache and notification
// follow the commit.
func (s *Service) Revoke(ctx context.Context, req revocation.RevokeRequest) (*revocation.Record, error) {
	ctx, span := s.tracer.Start(ctx, "revocation.Revoke", trace.WithAttributes(
		attribute.String("document_id", req.DocumentID.String()),
		attribute.String("reason", req.Reason.String()),
	))
	defer span.End()

	rec, err := s.revoke(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "revoke failed")
		return nil, err
	}
	return rec, nil
}

func (s *Service) revoke(ctx context.Context, req revocation.RevokeRequest) (*revocation.Record, error) {
	if err := policy.Require(req.Actor.Role, policy.CapRevoke); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var (
		rec      *revocation.Record
		previous document.Status
		existing *revocation.Record
		cascaded int
	)
	start := time.Now()
	err := s.tx.RunInTx(ctx, lockKey(req.TenantID, req.DocumentID), func(ctx context.Context) error {
		active, err := s.store.FindActive(ctx, req.TenantID, req.DocumentID)
		if err == nil {
			existing = active
			return s.completeCascade(ctx, req.TenantID, req.DocumentID)
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to check existing revocation")
		}

		doc, err := s.loadDocument(ctx, req.TenantID, req.DocumentID)
		if err != nil {
			return err
		}
		previous = doc.Status

		rec = &revocation.Record{
			ID:            id.NewRevocationID(),
			TenantID:      req.TenantID,
			DocumentID:    req.DocumentID,
			Subject:       req.Subject,
			RevokedBy:     req.Actor.ID,
			RevokedByRole: req.Actor.Role,
			RevokedAt:     now,
			Reason:        req.Reason,
			ReasonDetails: req.ReasonDetails,
			Status:        revocation.StatusRevoked,
			IsActive:      true,
			Snapshot:      revocation.SnapshotOf(doc),
		}
		if err := s.store.Create(ctx, rec); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return errAlreadyRevoked
			}
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to store revocation")
		}
		if err := s.documents.SetStatus(ctx, req.TenantID, req.DocumentID, document.StatusRevoked); err != nil {
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to mark document revoked")
		}
		n, err := s.grants.DeactivateAllForDocument(ctx, req.TenantID, req.DocumentID, grant.DeactivatedByRevocation)
		if err != nil {
			return err
		}
		cascaded = n
		return nil
	})
	s.observeTx(start)
	if existing != nil || errors.Is(err, errAlreadyRevoked) {
		if s.metrics != nil {
			s.metrics.IncConflict()
		}
		if existing != nil {
			s.mark(ctx, existing)
		}
		return nil, errAlreadyRevoked
	}
	if err != nil {
		return nil, err
	}

	s.mark(ctx, rec)
	if err := s.auditor.Emit(ctx, audit.Event{
		TenantID:        rec.TenantID,
		DocumentID:      rec.DocumentID,
		Subject:         rec.Subject,
		Action:          audit.ActionStatusChanged,
		PerformedBy:     req.Actor.ID,
		PerformedByRole: req.Actor.Role,
		OldStatus:       previous.String(),
		NewStatus:       document.StatusRevoked.String(),
		Reason:          rec.Reason.String(),
		Metadata:        audit.Metadata{RevocationID: rec.ID},
	}); err != nil {
		return nil, err
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		TenantID:        rec.TenantID,
		DocumentID:      rec.DocumentID,
		Subject:         rec.Subject,
		Action:          audit.ActionRevoked,
		PerformedBy:     req.Actor.ID,
		PerformedByRole: req.Actor.Role,
		Reason:          joinReason(rec.Reason, rec.ReasonDetails),
		Metadata: audit.Metadata{
			RevocationID: rec.ID,
			Extra:        map[string]string{"grants_deactivated": strconv.Itoa(cascaded)},
		},
	}); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Notice{
		Kind:         notify.KindDocumentRevoked,
		TenantID:     rec.TenantID,
		DocumentID:   rec.DocumentID,
		Subject:      rec.Subject,
		RevocationID: rec.ID,
		Reason:       rec.Reason.String(),
		Message:      rec.Reason.RecipientMessage(),
		Actor:        req.Actor.ID,
		RequestID:    requestcontext.RequestID(ctx),
		OccurredAt:   now,
	})
	if s.metrics != nil {
		s.metrics.IncRevoked(rec.Reason.String())
		s.metrics.AddCascaded(cascaded)
	}
	s.logger.InfoContext(ctx, "document revoked",
		"revocation_id", rec.ID.String(),
		"document_id", rec.DocumentID.String(),
		"reason", rec.Reason.String(),
		"grants_deactivated", cascaded,
		"request_id", requestcontext.RequestID(ctx),
	)
	return rec, nil
}

// completeCascade re-applies the idempotent part of a revocation that is
// already on the ledger, so a retry after a failure past the commit finishes
// the job. It runs inside the revoke transaction while the record is still
// active. A failure rolls the tail back and is logged; the caller still gets
// the conflict.
func (s *Service) completeCascade(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) error {
	if err := s.documents.SetStatus(ctx, tenantID, documentID, document.StatusRevoked); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "failed to re-apply revoked status", "document_id", documentID.String(), "error", err)
		return errAlreadyRevoked
	}
	if _, err := s.grants.DeactivateAllForDocument(ctx, tenantID, documentID, grant.DeactivatedByRevocation); err != nil {
		s.logger.WarnContext(ctx, "failed to re-apply grant cascade", "document_id", documentID.String(), "error", err)
		return errAlreadyRevoked
	}
	return nil
}

// Reinstate closes a revocation and restores the document's prior status.
// Grants deactivated by the revocation stay inactive.
func (s *Service) Reinstate(ctx context.Context, req revocation.ReinstateRequest) (*revocation.Record, error) {
	ctx, span := s.tracer.Start(ctx, "revocation.Reinstate", trace.WithAttributes(
		attribute.String("revocation_id", req.RevocationID.String()),
	))
	defer span.End()

	rec, err := s.reinstate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reinstate failed")
		return nil, err
	}
	return rec, nil
}

func (s *Service) reinstate(ctx context.Context, req revocation.ReinstateRequest) (*revocation.Record, error) {
	if err := policy.Require(req.Actor.Role, policy.CapReinstate); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	current, err := s.store.FindByID(ctx, req.TenantID, req.RevocationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "revocation not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load revocation")
	}
	now := requestcontext.Now(ctx)

	var rec *revocation.Record
	start := time.Now()
	err = s.tx.RunInTx(ctx, lockKey(req.TenantID, current.DocumentID), func(ctx context.Context) error {
		updated, err := s.store.Execute(ctx, req.TenantID, req.RevocationID,
			func(r *revocation.Record) error { return r.CanReinstate() },
			func(r *revocation.Record) { r.ApplyReinstatement(req.Actor, req.Reason, now) },
		)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "revocation not found")
		case dErrors.HasCode(err, dErrors.CodeInvalidState):
			return err
		case err != nil:
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to reinstate revocation")
		}
		if err := s.documents.SetStatus(ctx, req.TenantID, updated.DocumentID, updated.RestoreStatus()); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "document not found")
			}
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to restore document status")
		}
		rec = updated
		return nil
	})
	s.observeTx(start)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Clear(ctx, rec.TenantID, rec.DocumentID); err != nil {
			s.logger.WarnContext(ctx, "failed to clear revocation cache", "document_id", rec.DocumentID.String(), "error", err)
		}
	}
	restored := rec.RestoreStatus().String()
	if err := s.auditor.Emit(ctx, audit.Event{
		TenantID:        rec.TenantID,
		DocumentID:      rec.DocumentID,
		Subject:         rec.Subject,
		Action:          audit.ActionReinstated,
		PerformedBy:     req.Actor.ID,
		PerformedByRole: req.Actor.Role,
		Reason:          req.Reason,
		Metadata:        audit.Metadata{RevocationID: rec.ID},
	}); err != nil {
		return nil, err
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		TenantID:        rec.TenantID,
		DocumentID:      rec.DocumentID,
		Subject:         rec.Subject,
		Action:          audit.ActionStatusChanged,
		PerformedBy:     req.Actor.ID,
		PerformedByRole: req.Actor.Role,
		OldStatus:       document.StatusRevoked.String(),
		NewStatus:       restored,
		Reason:          req.Reason,
		Metadata:        audit.Metadata{RevocationID: rec.ID},
	}); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Notice{
		Kind:         notify.KindDocumentReinstated,
		TenantID:     rec.TenantID,
		DocumentID:   rec.DocumentID,
		Subject:      rec.Subject,
		RevocationID: rec.ID,
		Reason:       req.Reason,
		Actor:        req.Actor.ID,
		RequestID:    requestcontext.RequestID(ctx),
		OccurredAt:   now,
	})
	if s.metrics != nil {
		s.metrics.IncReinstated()
	}
	s.logger.InfoContext(ctx, "document reinstated",
		"revocation_id", rec.ID.String(),
		"document_id", rec.DocumentID.String(),
		"restored_status", restored,
		"request_id", requestcontext.RequestID(ctx),
	)
	return rec, nil
}

// GetStatus composes the stored document status with the ledger. The
// document and its active revocation are loaded concurrently.
func (s *Service) GetStatus(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) (*revocation.StatusView, error) {
	var (
		doc    *document.Document
		active *revocation.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.loadDocument(gctx, tenantID, documentID)
		doc = d
		return err
	})
	g.Go(func() error {
		r, err := s.store.FindActive(gctx, tenantID, documentID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to load revocation")
		}
		active = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := &revocation.StatusView{
		DocumentID:      documentID,
		DocumentStatus:  doc.Status,
		EffectiveStatus: status.Resolve(doc.Status, active != nil),
		IsRevoked:       active != nil,
	}
	if active != nil {
		revID := active.ID
		revokedAt := active.RevokedAt
		view.RevocationID = &revID
		view.Reason = active.Reason
		view.ReasonDetails = active.ReasonDetails
		view.RevokedAt = &revokedAt
		view.RevokedBy = active.RevokedBy
		view.CanReinstate = policy.Allow(requestcontext.Actor(ctx).Role, policy.CapReinstate)
	}
	return view, nil
}

// History lists every revocation of the document, newest first.
func (s *Service) History(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) ([]*revocation.Record, error) {
	records, err := s.store.ListByDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list revocations")
	}
	return records, nil
}

// Lookup returns the marker of the document's effective revocation, or nil.
func (s *Service) Lookup(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) (*revocation.Marker, error) {
	return s.lookup.Lookup(ctx, tenantID, documentID)
}

func (s *Service) loadDocument(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) (*document.Document, error) {
	doc, err := s.documents.Get(ctx, tenantID, documentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load document")
	}
	return doc, nil
}

func (s *Service) mark(ctx context.Context, rec *revocation.Record) {
	s.lookup.mark(ctx, rec)
}

func (s *Service) observeTx(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveTx(float64(time.Since(start).Microseconds()) / 1000.0)
	}
}

func lockKey(tenantID id.TenantID, documentID id.DocumentID) string {
	return tenantID.String() + ":" + documentID.String()
}

func joinReason(reason revocation.Reason, details string) string {
	if details == "" {
		return reason.String()
	}
	return reason.String() + ": " + details
}
